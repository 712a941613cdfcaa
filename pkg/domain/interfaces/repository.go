package interfaces

import "github.com/m-mizutani/goerr/v2"

// ErrNotFound is returned by repositories and stores when the requested
// entity does not exist
var ErrNotFound = goerr.New("not found")

// ErrAlreadyExists is returned by Create when the ID is taken
var ErrAlreadyExists = goerr.New("already exists")

// Repository defines the interface for data persistence
type Repository interface {
	Document() DocumentRepository
	Close() error
}
