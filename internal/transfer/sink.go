package transfer

import "io"

type fileSink struct {
	io.WriteCloser
}

// NewFileSink adapts a local file to Sink. CloseWithError closes the file
// and leaves whatever was written in place.
func NewFileSink(w io.WriteCloser) Sink {
	return fileSink{WriteCloser: w}
}

func (f fileSink) CloseWithError(error) error {
	return f.Close()
}
