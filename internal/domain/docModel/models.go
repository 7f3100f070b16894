package docModel

import "time"

type DocStatus string

const (
	StatusUploaded  DocStatus = "uploaded"
	StatusProcessed DocStatus = "processed"
	StatusIndexed   DocStatus = "indexed"
	StatusError     DocStatus = "error"
)

// IsTerminal reports whether a document can no longer change status.
// error is terminal; indexed is terminal for ingestion but deletable.
func (s DocStatus) IsTerminal() bool {
	return s == StatusIndexed || s == StatusError
}

type DocType string

var (
	PDF  DocType = "pdf"
	DOCX DocType = "docx"
	TXT  DocType = "txt"
	ERR  DocType = "error"
)

// Document is the registry-owned metadata record. Vector entries reference it
// by Id only, never by value.
type Document struct {
	Id            string    `json:"document_id"`
	Filename      string    `json:"filename"`
	FileSize      int64     `json:"file_size"`
	FileType      DocType   `json:"file_type"`
	UploadTime    time.Time `json:"upload_time"`
	ProcessedTime time.Time `json:"processed_time,omitempty"`
	TextLength    int       `json:"text_length"`
	ChunkCount    int       `json:"chunk_count"`
	Status        DocStatus `json:"status"`
}

// Chunk is an immutable text span created during ingestion and destroyed only
// with its owning document.
type Chunk struct {
	ChunkId    string `json:"chunk_id"`
	DocumentId string `json:"document_id"`
	Text       string `json:"text"`
	Order      int    `json:"order"`
}
