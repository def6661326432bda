// Package enc renders rows as JSON with millisecond UTC timestamps.
package enc

import (
	"bytes"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
)

const (
	FullDateFormat = "2006-01-02T15:04:05.000Z07:00"
)

var (
	api = newAPI()

	bpool = sync.Pool{New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	}}
)

func newAPI() jsoniter.API {
	api := jsoniter.Config{
		EscapeHTML:  false,
		SortMapKeys: true,
	}.Froze()
	timeType := reflect2.TypeByName("time.Time")
	tc := timeCodec{layout: FullDateFormat}
	api.RegisterExtension(jsoniter.EncoderExtension{timeType: tc})
	api.RegisterExtension(jsoniter.DecoderExtension{timeType: tc})
	return api
}

func Marshal(value any) ([]byte, error) {
	return api.Marshal(value)
}

func Unmarshal(data []byte, ptr any) error {
	return api.Unmarshal(data, ptr)
}

// EncodeInto writes the value as one JSON line.
func EncodeInto(w io.Writer, value any) error {
	stream := api.BorrowStream(w)
	defer api.ReturnStream(stream)
	stream.WriteVal(value)
	stream.WriteRaw("\n")
	stream.Flush()
	return stream.Error
}

func AcquireBuffer() *bytes.Buffer {
	buf := bpool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func ReleaseBuffer(buf *bytes.Buffer) {
	bpool.Put(buf)
}

type timeCodec struct {
	layout string
}

func (c timeCodec) IsEmpty(ptr unsafe.Pointer) bool {
	return (*time.Time)(ptr).IsZero()
}

func (c timeCodec) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	t := *(*time.Time)(ptr)
	stream.WriteString(t.UTC().Format(c.layout))
}

func (c timeCodec) Decode(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	if iter.ReadNil() {
		*(*time.Time)(ptr) = time.Time{}
		return
	}
	value := iter.ReadString()
	t, err := time.Parse(c.layout, value)
	if err != nil {
		iter.ReportError("decode time", err.Error())
		return
	}
	*(*time.Time)(ptr) = t
}
