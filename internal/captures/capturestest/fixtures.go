package capturestest

import (
	"encoding/json"
	"fmt"
)

// Page renders a paged portal response.
func Page(number, pageSize, pageCount, total int, items []json.RawMessage) json.RawMessage {
	if items == nil {
		items = []json.RawMessage{}
	}
	raw, _ := json.Marshal(map[string]any{
		"page":       number,
		"page_size":  pageSize,
		"page_count": pageCount,
		"total":      total,
		"items":      items,
	})
	return raw
}

// Paged splits items into portal pages of perPage items.
func Paged(items []json.RawMessage, perPage int) []json.RawMessage {
	count := (len(items) + perPage - 1) / perPage
	pages := make([]json.RawMessage, 0, count)
	for i := range count {
		end := min((i+1)*perPage, len(items))
		pages = append(pages, Page(i+1, perPage, count, len(items), items[i*perPage:end]))
	}
	return pages
}

// Hearings returns n hearing items with ids starting at first.
func Hearings(first, n int) []json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range n {
		id := first + i
		items[i] = json.RawMessage(fmt.Sprintf(
			`{"id":%d,"starts_at":"2026-11-%02dT09:00:00Z","status":"scheduled","room":{"name":"Sala %d"},`+
				`"kind":{"description":"Instrução","virtual":%t},"process":{"id":%d,"number":"0010%03d-12.2026.5.03.0001"}}`,
			id, i%28+1, i%5+1, i%2 == 0, 9000+id, id%1000))
	}
	return items
}

// Processes returns n docket items with ids starting at first.
func Processes(first, n int) []json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range n {
		id := first + i
		items[i] = json.RawMessage(fmt.Sprintf(
			`{"id":%d,"number":"0020%03d-45.2025.5.03.0002","class":"ATOrd","court":"2ª Vara","plaintiff":"Autor %d","defendant":"Ré %d","filed_at":"2025-03-10"}`,
			id, id%1000, id, id))
	}
	return items
}

// PendingFilings returns n pending items; every item gets a document id.
func PendingFilings(first, n int) []json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range n {
		id := first + i
		items[i] = json.RawMessage(fmt.Sprintf(
			`{"id":%d,"number":"0030%03d-10.2025.5.03.0003","document_id":%d,"notice_created_at":"2026-10-01T10:00:00Z","deadline_at":"2026-10-20","overdue":false}`,
			id, id%1000, 50000+id))
	}
	return items
}

// Timeline returns a timeline of n entries whose first documents entries
// are documents.
func Timeline(n, documents int) json.RawMessage {
	items := make([]json.RawMessage, n)
	for i := range n {
		items[i] = json.RawMessage(fmt.Sprintf(
			`{"id":%d,"title":"Movimento %d","kind":"movement","date":"2026-09-%02dT12:00:00","document":%t}`,
			i+1, i+1, i%28+1, i < documents))
	}
	raw, _ := json.Marshal(items)
	return raw
}
