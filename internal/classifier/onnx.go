package classifier

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/straja-ai/wsd/internal/features"
	"github.com/straja-ai/wsd/internal/sense"
)

// ONNXModel describes an exported classifier graph. The graph takes a dense
// float32 [1, Dim] input and returns either one logit (positive means
// sense 2) or two scores ordered sense 1, sense 2.
type ONNXModel struct {
	ModelFile  string `msgpack:"model_file" json:"model_file"`
	InputName  string `msgpack:"input_name" json:"input_name"`
	OutputName string `msgpack:"output_name" json:"output_name"`
	Dim        int    `msgpack:"dim" json:"dim"`
	Outputs    int    `msgpack:"outputs" json:"outputs"`
}

func (s ONNXModel) withDefaults() ONNXModel {
	if s.InputName == "" {
		s.InputName = "features"
	}
	if s.OutputName == "" {
		s.OutputName = "logits"
	}
	if s.Outputs <= 0 {
		s.Outputs = 2
	}
	return s
}

// ONNX runs a classifier exported by an external training pipeline.
type ONNX struct {
	desc    ONNXModel
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	// The session reuses its tensors, so runs are serialized.
	mu sync.Mutex
}

var _ Classifier = (*ONNX)(nil)

var ortInit sync.Mutex

// LoadONNX opens desc.ModelFile (relative paths resolve against dir).
func LoadONNX(dir string, desc ONNXModel) (*ONNX, error) {
	desc = desc.withDefaults()
	if desc.Dim <= 0 {
		return nil, errors.New("onnx classifier: dim must be positive")
	}
	if desc.Outputs != 1 && desc.Outputs != 2 {
		return nil, fmt.Errorf("onnx classifier: unsupported output width %d", desc.Outputs)
	}

	modelPath := desc.ModelFile
	if !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(dir, modelPath)
	}
	if _, err := os.Stat(modelPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("onnx model %s: %w", modelPath, sense.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("onnx model %s: %w", modelPath, err)
	}

	if err := initRuntime(dir); err != nil {
		return nil, err
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(desc.Dim)))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(desc.Outputs)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		modelPath,
		[]string{desc.InputName},
		[]string{desc.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	return &ONNX{desc: desc, session: session, input: input, output: output}, nil
}

// Fit is not supported; ONNX graphs are trained elsewhere.
func (m *ONNX) Fit([]features.Vector, []sense.Label) error {
	return errors.New("onnx classifier: fit is not supported, export a trained graph instead")
}

func (m *ONNX) Predict(x features.Vector) (sense.Label, error) {
	if m == nil || m.session == nil {
		return sense.None, fmt.Errorf("onnx classifier: %w", sense.ErrNotFitted)
	}
	if x.Dim != m.desc.Dim {
		return sense.None, fmt.Errorf("onnx classifier: vector dim %d does not match model dim %d", x.Dim, m.desc.Dim)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	buf := m.input.GetData()
	for i := range buf {
		buf[i] = 0
	}
	for k, idx := range x.Indices {
		buf[idx] = float32(x.Values[k])
	}

	if err := m.session.Run(); err != nil {
		return sense.None, fmt.Errorf("onnx run: %w", err)
	}

	out := m.output.GetData()
	if m.desc.Outputs == 1 {
		if out[0] > 0 {
			return sense.Two, nil
		}
		return sense.One, nil
	}
	if out[1] > out[0] {
		return sense.Two, nil
	}
	return sense.One, nil
}

// Close releases the session and tensors.
func (m *ONNX) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.session != nil {
		err = m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
	}
	if m.output != nil {
		m.output.Destroy()
	}
	return err
}

func initRuntime(dir string) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	libPath := resolveSharedLibraryPath(dir)
	if libPath == "" {
		return errors.New("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnxruntime: %w", err)
	}
	return nil
}

// resolveSharedLibraryPath prefers ONNXRUNTIME_SHARED_LIBRARY_PATH, then
// probes the artifact directory and common system locations.
func resolveSharedLibraryPath(dir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.so",
		"libonnxruntime.dylib",
		"onnxruntime.dll",
	}
	dirs := []string{
		dir,
		filepath.Join(dir, "lib"),
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}
	for _, d := range dirs {
		for _, name := range names {
			candidate := filepath.Join(d, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
