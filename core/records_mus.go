package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
)

// Timestamps are stored as Unix micro.

var (
	sourcesMUS  = ord.NewSliceSer[string](ord.String)
	vectorMUS   = ord.NewSliceSer[float32](raw.Float32)
	metadataMUS = ord.NewMapSer[string, string](ord.String, ord.String)
)

var IDMUS = idMUS{}

type idMUS struct{}

func (s idMUS) Marshal(v ID, bs []byte) (n int) {
	return varint.Uint64.Marshal(uint64(v), bs)
}

func (s idMUS) Unmarshal(bs []byte) (v ID, n int, err error) {
	tmp, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = ID(tmp)
	return
}

func (s idMUS) Size(v ID) (size int) {
	return varint.Uint64.Size(uint64(v))
}

func (s idMUS) Skip(bs []byte) (n int, err error) {
	return varint.Uint64.Skip(bs)
}

var timeMUS = timeMicroMUS{}

type timeMicroMUS struct{}

func (s timeMicroMUS) Marshal(v time.Time, bs []byte) (n int) {
	return raw.Int64.Marshal(v.UnixMicro(), bs)
}

func (s timeMicroMUS) Unmarshal(bs []byte) (v time.Time, n int, err error) {
	tmp, n, err := raw.Int64.Unmarshal(bs)
	if err != nil {
		return
	}
	v = time.UnixMicro(tmp).UTC()
	return
}

func (s timeMicroMUS) Size(v time.Time) (size int) {
	return raw.Int64.Size(v.UnixMicro())
}

func (s timeMicroMUS) Skip(bs []byte) (n int, err error) {
	return raw.Int64.Skip(bs)
}

var DocumentMUS = documentMUS{}

type documentMUS struct{}

func (s documentMUS) Marshal(v Document, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.OwnerId, bs[n:])
	n += ord.String.Marshal(v.Title, bs[n:])
	n += ord.String.Marshal(v.FilePath, bs[n:])
	n += ord.String.Marshal(v.Format, bs[n:])
	n += varint.Int64.Marshal(v.Size, bs[n:])
	n += ord.Bool.Marshal(v.Embedded, bs[n:])
	n += varint.Int.Marshal(v.Generation, bs[n:])
	n += timeMUS.Marshal(v.UploadedAt, bs[n:])
	return n + timeMUS.Marshal(v.UpdatedAt, bs[n:])
}

func (s documentMUS) Unmarshal(bs []byte) (v Document, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Title, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.FilePath, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Format, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Size, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Embedded, n1, err = ord.Bool.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Generation, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UploadedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.UpdatedAt, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s documentMUS) Size(v Document) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.OwnerId)
	size += ord.String.Size(v.Title)
	size += ord.String.Size(v.FilePath)
	size += ord.String.Size(v.Format)
	size += varint.Int64.Size(v.Size)
	size += ord.Bool.Size(v.Embedded)
	size += varint.Int.Size(v.Generation)
	size += timeMUS.Size(v.UploadedAt)
	return size + timeMUS.Size(v.UpdatedAt)
}

func (s documentMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

var ChatExchangeMUS = chatExchangeMUS{}

type chatExchangeMUS struct{}

func (s chatExchangeMUS) Marshal(v ChatExchange, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += IDMUS.Marshal(v.OwnerId, bs[n:])
	n += ord.String.Marshal(v.Question, bs[n:])
	n += ord.String.Marshal(v.Answer, bs[n:])
	n += sourcesMUS.Marshal(v.Sources, bs[n:])
	return n + timeMUS.Marshal(v.Timestamp, bs[n:])
}

func (s chatExchangeMUS) Unmarshal(bs []byte) (v ChatExchange, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.OwnerId, n1, err = IDMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Question, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Answer, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Sources, n1, err = sourcesMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp, n1, err = timeMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s chatExchangeMUS) Size(v ChatExchange) (size int) {
	size = IDMUS.Size(v.Id)
	size += IDMUS.Size(v.OwnerId)
	size += ord.String.Size(v.Question)
	size += ord.String.Size(v.Answer)
	size += sourcesMUS.Size(v.Sources)
	return size + timeMUS.Size(v.Timestamp)
}

func (s chatExchangeMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

var StoredChunkMUS = storedChunkMUS{}

type storedChunkMUS struct{}

func (s storedChunkMUS) Marshal(v StoredChunk, bs []byte) (n int) {
	n = IDMUS.Marshal(v.Id, bs)
	n += ord.String.Marshal(v.Text, bs[n:])
	n += metadataMUS.Marshal(v.Metadata, bs[n:])
	return n + vectorMUS.Marshal(v.Vector, bs[n:])
}

func (s storedChunkMUS) Unmarshal(bs []byte) (v StoredChunk, n int, err error) {
	v.Id, n, err = IDMUS.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.Text, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Metadata, n1, err = metadataMUS.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Vector, n1, err = vectorMUS.Unmarshal(bs[n:])
	n += n1
	return
}

func (s storedChunkMUS) Size(v StoredChunk) (size int) {
	size = IDMUS.Size(v.Id)
	size += ord.String.Size(v.Text)
	size += metadataMUS.Size(v.Metadata)
	return size + vectorMUS.Size(v.Vector)
}

func (s storedChunkMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
