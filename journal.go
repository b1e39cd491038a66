package main

var journalTable = tableDef{name: "journal_entries", order: newestFirst, tracksUpdatedAt: true}

// journalResource serves /api/journal-entries.
// GET supports search (title or content) and startDate/endDate on created_at.
func (h *Handler) journalResource() *resource[journalEntry, journalPayload] {
	return newResource(h, h.stores.journal, resource[journalEntry, journalPayload]{
		path:         "/journal-entries",
		noun:         "journal entry",
		notFoundCode: "JOURNAL_ENTRY_NOT_FOUND",
		defaultLimit: 50,
		maxLimit:     100,
		filters: []filterParam{
			searchFilter("title", "content"),
			dateRangeFilter("created_at"),
		},
	})
}
