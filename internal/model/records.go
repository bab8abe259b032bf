package model

// PDFLink is one discovered PDF artifact, appended to the crawl output as
// soon as it is seen
type PDFLink struct {
	PDFURL     string `json:"pdf_url"`     // Normalized absolute URL of the PDF
	SourcePage string `json:"source_page"` // Page the link was found on
}

// TextRecord is one document's worth of plain text. The downloader emits it
// for extracted PDFs, the crawler (optionally) for fetched pages, and the
// preprocessor both consumes and emits it — one record per chunk on the way
// out.
type TextRecord struct {
	ID     string `json:"id"`     // UUID for raw text, "{url}#chunk-{n}" for LLM-ready chunks
	URL    string `json:"url"`    // Source URL
	Title  string `json:"title"`  // Display title (PDF basename, page title, or section heading)
	Text   string `json:"text"`   // Plain text content
	Tokens int    `json:"tokens"` // Token count of Text
}

// IngestRecord is one line of the graph-ingestion input file
type IngestRecord struct {
	ID   string `json:"id"`   // Becomes the Document node id
	Text string `json:"text"` // Full document text to extract facts from
}
