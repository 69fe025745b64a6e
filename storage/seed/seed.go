// Package seed loads the embedded demo data into the in-memory store.
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"sync"

	"github.com/pkg/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	appfs "github.com/trezcool/kodi/fs"
	inmemdb "github.com/trezcool/kodi/storage/database/inmem"
)

const (
	schemaPath = "assets/seed/mockdata.schema.json"
	dataPath   = "assets/seed/mockdata.json"
)

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		file, err := appfs.FS.Open(schemaPath)
		if err != nil {
			schemaErr = errors.Wrap(err, "opening seed schema")
			return
		}
		defer file.Close()

		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaPath, file); err != nil {
			schemaErr = errors.Wrap(err, "adding seed schema")
			return
		}
		schema, schemaErr = compiler.Compile(schemaPath)
	})
	return schema, schemaErr
}

// Parse validates raw seed data against the seed schema and decodes it.
func Parse(data []byte) (inmemdb.Snapshot, error) {
	var snap inmemdb.Snapshot

	sch, err := compiledSchema()
	if err != nil {
		return snap, err
	}
	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return snap, errors.Wrap(err, "decoding seed data")
	}
	if err := sch.Validate(doc); err != nil {
		return snap, errors.Wrap(err, "invalid seed data")
	}

	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, errors.Wrap(err, "decoding seed data")
	}
	return snap, nil
}

// MockData returns the embedded demo snapshot.
func MockData() (inmemdb.Snapshot, error) {
	data, err := fs.ReadFile(appfs.FS, dataPath)
	if err != nil {
		return inmemdb.Snapshot{}, errors.Wrap(err, "reading seed data")
	}
	return Parse(data)
}

// Load imports the embedded demo snapshot into db. Records are upserted, so loading twice is harmless.
func Load(ctx context.Context, db *inmemdb.DB) error {
	snap, err := MockData()
	if err != nil {
		return err
	}
	return db.Import(ctx, snap)
}
