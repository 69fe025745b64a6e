package core

// Cache stores serialized values under string keys. Misses and backend failures both read as "not found".
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}
