package filestorage

import "mime/multipart"

// FileStorage abstracts where uploaded files end up. Handlers depend on this
// rather than on LocalStorage so tests can swap in a fake.
type FileStorage interface {
	// SaveFileWithPath stores the upload under the given subdirectory and
	// returns the path clients can use to reach it.
	SaveFileWithPath(fileHeader *multipart.FileHeader, subPath string) (string, error)
}
