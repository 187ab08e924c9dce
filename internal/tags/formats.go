package tags

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
	flac "github.com/go-flac/go-flac"
	"github.com/go-flac/flacvorbis"
)

// codec is one member of the closed set of writable tag formats.
type codec interface {
	name() string
	read(path string) (Text, error)
	write(path string, patch Text) error
}

// probe selects the codec for path from its leading bytes, falling back to
// the extension for untagged MP3 streams.
func probe(path string) (codec, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnreadableAttributes, path, err)
	}
	defer file.Close()

	_, fileType, err := tag.Identify(file)
	if err == nil {
		switch fileType {
		case tag.MP3:
			return id3Codec{}, nil
		case tag.FLAC:
			return flacCodec{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, fileType)
	}
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		return id3Codec{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, strings.ToLower(filepath.Ext(path)))
}

func collect(values map[Field]string) Text {
	text := make(Text, len(values))
	for field, value := range values {
		if value != "" {
			text[field] = value
		}
	}
	return text
}

type id3Codec struct{}

func (id3Codec) name() string { return "id3v2" }

func (id3Codec) read(path string) (Text, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer t.Close()
	return collect(map[Field]string{
		FieldTitle:  t.Title(),
		FieldArtist: t.Artist(),
		FieldAlbum:  t.Album(),
	}), nil
}

func (id3Codec) write(path string, patch Text) error {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer t.Close()

	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	for field, value := range patch {
		switch field {
		case FieldTitle:
			t.SetTitle(value)
		case FieldArtist:
			t.SetArtist(value)
		case FieldAlbum:
			t.SetAlbum(value)
		}
	}
	return t.Save()
}

type flacCodec struct{}

func (flacCodec) name() string { return "vorbis" }

var vorbisKeys = map[Field]string{
	FieldTitle:  flacvorbis.FIELD_TITLE,
	FieldArtist: flacvorbis.FIELD_ARTIST,
	FieldAlbum:  flacvorbis.FIELD_ALBUM,
}

func (flacCodec) read(path string) (Text, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, err
	}
	cmt, _, err := vorbisComment(f)
	if err != nil || cmt == nil {
		return Text{}, err
	}
	values := make(map[Field]string, len(vorbisKeys))
	for field, key := range vorbisKeys {
		found, err := cmt.Get(key)
		if err != nil {
			return nil, err
		}
		if len(found) > 0 {
			values[field] = found[0]
		}
	}
	return collect(values), nil
}

func (flacCodec) write(path string, patch Text) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return err
	}
	cmt, idx, err := vorbisComment(f)
	if err != nil {
		return err
	}
	if cmt == nil {
		cmt = flacvorbis.New()
	}
	for field, value := range patch {
		key, ok := vorbisKeys[field]
		if !ok {
			continue
		}
		cmt.Comments = dropComment(cmt.Comments, key)
		if err := cmt.Add(key, value); err != nil {
			return err
		}
	}
	block := cmt.Marshal()
	if idx >= 0 {
		f.Meta[idx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}
	return f.Save(path)
}

func vorbisComment(f *flac.File) (*flacvorbis.MetaDataBlockVorbisComment, int, error) {
	for idx, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmt, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil, -1, err
		}
		return cmt, idx, nil
	}
	return nil, -1, nil
}

func dropComment(comments []string, key string) []string {
	out := comments[:0]
	for _, c := range comments {
		name, _, _ := strings.Cut(c, "=")
		if strings.EqualFold(name, key) {
			continue
		}
		out = append(out, c)
	}
	return out
}
