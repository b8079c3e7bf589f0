package artifact

import (
	"context"
	"fmt"
	"regexp"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/straja-ai/wsd/internal/classifier"
	"github.com/straja-ai/wsd/internal/features"
	"github.com/straja-ai/wsd/internal/sense"
)

// Pair is the fitted vectorizer and classifier for one word. Both halves
// are read-only once loaded.
type Pair struct {
	Vectorizer features.TextVectorizer
	Classifier classifier.Classifier
}

// Store loads trained artifact pairs by word.
type Store interface {
	Load(ctx context.Context, word sense.Word) (Pair, error)
}

// Writer persists artifact pairs. Only the training side uses it.
type Writer interface {
	Save(ctx context.Context, word sense.Word, pair Pair) error
}

// Roles of the two blobs stored per word.
const (
	RoleVectorizer = "vectorizer"
	RoleModel      = "model"
)

// Blob kinds.
const (
	KindTFIDF    = "tfidf"
	KindLogistic = "logreg"
	KindONNX     = "onnx"
)

const formatVersion = 1

type envelope struct {
	Kind    string             `msgpack:"kind"`
	Version int                `msgpack:"version"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

var wordRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// checkWord rejects identifiers that cannot name an artifact safely.
func checkWord(word sense.Word) error {
	if !wordRe.MatchString(string(word)) {
		return fmt.Errorf("%w: invalid artifact key %q", sense.ErrUnsupportedWord, word)
	}
	return nil
}

// BlobName is the deterministic file/row name for a word and role,
// e.g. "director_vectorizer".
func BlobName(word sense.Word, role string) string {
	return string(word) + "_" + role
}

func encode(kind string, v any) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return msgpack.Marshal(envelope{Kind: kind, Version: formatVersion, Payload: payload})
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("decode artifact envelope: %w", err)
	}
	if env.Version != formatVersion {
		return env, fmt.Errorf("unsupported artifact format version %d", env.Version)
	}
	return env, nil
}

// EncodeVectorizer serializes a fitted vectorizer.
func EncodeVectorizer(v features.TextVectorizer) ([]byte, error) {
	switch t := v.(type) {
	case *features.TFIDF:
		if !t.Fitted() {
			return nil, fmt.Errorf("encode vectorizer: %w", sense.ErrNotFitted)
		}
		return encode(KindTFIDF, t)
	default:
		return nil, fmt.Errorf("encode vectorizer: unsupported type %T", v)
	}
}

// DecodeVectorizer restores a vectorizer written by EncodeVectorizer.
func DecodeVectorizer(data []byte) (features.TextVectorizer, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Kind {
	case KindTFIDF:
		var t features.TFIDF
		if err := msgpack.Unmarshal(env.Payload, &t); err != nil {
			return nil, fmt.Errorf("decode tfidf: %w", err)
		}
		if !t.Fitted() {
			return nil, fmt.Errorf("decode tfidf: %w", sense.ErrNotFitted)
		}
		return &t, nil
	default:
		return nil, fmt.Errorf("unknown vectorizer kind %q", env.Kind)
	}
}

// EncodeClassifier serializes a fitted classifier.
func EncodeClassifier(c classifier.Classifier) ([]byte, error) {
	switch m := c.(type) {
	case *classifier.Logistic:
		if !m.Fitted() {
			return nil, fmt.Errorf("encode classifier: %w", sense.ErrNotFitted)
		}
		return encode(KindLogistic, m)
	default:
		return nil, fmt.Errorf("encode classifier: unsupported type %T", c)
	}
}

// EncodeONNXModel writes a model blob that points at an exported ONNX graph.
func EncodeONNXModel(desc classifier.ONNXModel) ([]byte, error) {
	return encode(KindONNX, desc)
}

// DecodeClassifier restores a classifier. ONNX graph paths resolve
// against modelDir.
func DecodeClassifier(data []byte, modelDir string) (classifier.Classifier, error) {
	env, err := decodeEnvelope(data)
	if err != nil {
		return nil, err
	}
	switch env.Kind {
	case KindLogistic:
		var m classifier.Logistic
		if err := msgpack.Unmarshal(env.Payload, &m); err != nil {
			return nil, fmt.Errorf("decode logistic: %w", err)
		}
		if !m.Fitted() {
			return nil, fmt.Errorf("decode logistic: %w", sense.ErrNotFitted)
		}
		return &m, nil
	case KindONNX:
		var desc classifier.ONNXModel
		if err := msgpack.Unmarshal(env.Payload, &desc); err != nil {
			return nil, fmt.Errorf("decode onnx model: %w", err)
		}
		return classifier.LoadONNX(modelDir, desc)
	default:
		return nil, fmt.Errorf("unknown classifier kind %q", env.Kind)
	}
}

func decodePair(vecData, modelData []byte, modelDir string) (Pair, error) {
	vec, err := DecodeVectorizer(vecData)
	if err != nil {
		return Pair{}, err
	}
	clf, err := DecodeClassifier(modelData, modelDir)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Vectorizer: vec, Classifier: clf}, nil
}

func encodePair(pair Pair) (vecData, modelData []byte, err error) {
	if pair.Vectorizer == nil || pair.Classifier == nil {
		return nil, nil, fmt.Errorf("artifact pair is incomplete")
	}
	if vecData, err = EncodeVectorizer(pair.Vectorizer); err != nil {
		return nil, nil, err
	}
	if modelData, err = EncodeClassifier(pair.Classifier); err != nil {
		return nil, nil, err
	}
	return vecData, modelData, nil
}
