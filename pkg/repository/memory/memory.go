package memory

import (
	"github.com/secmon-lab/safetydocs/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps everything in process memory. It backs tests and
// single-instance development servers.
type Memory struct {
	document *documentRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		document: newDocumentRepository(),
	}
}

func (m *Memory) Document() interfaces.DocumentRepository {
	return m.document
}

func (m *Memory) Close() error {
	return nil
}
