package worker

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"

	"github.com/Zuo-Peng/chatdash/internal/filter"
	"github.com/Zuo-Peng/chatdash/internal/metadata"
	"github.com/Zuo-Peng/chatdash/internal/parse"
)

// Document is a parsed transcript together with its metadata. It is never
// modified after creation; loading another transcript replaces it.
type Document struct {
	ID         string
	Generation uint64 // set when the harness adopts the document
	FileName   string
	Hash       string
	Result     *parse.Result
	Meta       metadata.Metadata
}

// NewDocument wraps a parse result. The ID is random; Generation is left
// for the harness to assign.
func NewDocument(res *parse.Result, fileName, hash string) *Document {
	return &Document{
		ID:       uuid.NewString(),
		FileName: fileName,
		Hash:     hash,
		Result:   res,
		Meta:     metadata.Build(res.Messages, fileName),
	}
}

func (d *Document) Messages() []parse.Message {
	if d == nil || d.Result == nil {
		return nil
	}
	return d.Result.Messages
}

func (d *Document) withGeneration(gen uint64) *Document {
	cp := *d
	cp.Generation = gen
	return &cp
}

// ContentHash keys the parse cache.
func ContentHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// FilterResult is a filter pass tied to the document it was computed on.
type FilterResult struct {
	filter.Result
	Criteria   filter.Criteria
	DocumentID string
	Generation uint64
}
