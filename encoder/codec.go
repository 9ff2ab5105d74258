package encoder

// Codec converts values to bytes and back.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, out any) error
	Name() string // Identifies the codec in logs and errors.
}
