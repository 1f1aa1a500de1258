package statement

// StatementPDF is the rendered PDF output.
type StatementPDF struct {
	// Data is the raw PDF content
	Data []byte
	// PageCount is the number of pages in the PDF
	PageCount int
	// ArchiveURL is a time-limited download link to the archived copy,
	// empty when archiving is disabled or failed
	ArchiveURL string
}
