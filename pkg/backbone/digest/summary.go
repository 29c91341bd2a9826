package digest

import "time"

// Summary is the immutable post-write descriptor produced once a file
// has finished uploading (spec.md GLOSSARY "Summary"). It is published
// into the owning Record and never mutated afterward.
type Summary struct {
	MD5           string
	SHA256        string
	FileSizeBytes int64
	FileName      string
	ContentType   string
	Expires       time.Time
}
