package transport

import (
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// OpenFile opens path for upload. The returned closer must be called once the
// upload is done.
func OpenFile(p string) (File, io.Closer, error) {
	f, err := os.Open(p)
	if err != nil {
		return File{}, nil, errors.Wrapf(err, "could not open %s", p)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return File{}, nil, errors.Wrapf(err, "could not stat %s", p)
	}
	if st.IsDir() {
		_ = f.Close()
		return File{}, nil, errors.Errorf("%s is a directory", p)
	}
	name := filepath.Base(p)
	return File{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Content:     f,
	}, f, nil
}
