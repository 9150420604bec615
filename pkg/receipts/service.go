package receipts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/authentic-hadith/truthserum/pkg/verification"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Service creates and verifies proof receipts. Input parameters are
// validated against a per-operation JSON Schema before a receipt is signed,
// so every receipt in the log has a known, checkable shape.
type Service struct {
	signer  *verification.Signer
	schemas map[OperationType]*jsonschema.Schema
}

// NewService compiles the embedded payload schemas and returns a ready
// Service.
func NewService(signer *verification.Signer) (*Service, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}
	return &Service{signer: signer, schemas: schemas}, nil
}

func loadSchemas() (map[OperationType]*jsonschema.Schema, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("receipts: read schemas: %w", err)
	}

	schemas := make(map[OperationType]*jsonschema.Schema, len(entries))
	for _, entry := range entries {
		name := strings.TrimSuffix(entry.Name(), ".json")
		op := OperationType(name)
		if !op.Valid() {
			return nil, fmt.Errorf("receipts: schema file %q does not name an operation", entry.Name())
		}

		raw, err := schemaFS.ReadFile("schemas/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("receipts: read schema %s: %w", entry.Name(), err)
		}

		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		schemaURL := fmt.Sprintf("https://truthserum.schemas.local/receipts/%s.schema.json", name)
		if err := c.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("receipts: load schema %s: %w", name, err)
		}
		compiled, err := c.Compile(schemaURL)
		if err != nil {
			return nil, fmt.Errorf("receipts: compile schema %s: %w", name, err)
		}
		schemas[op] = compiled
	}

	// Every operation must have a schema; a receipt with an unchecked
	// payload shape defeats the audit log.
	for _, op := range []OperationType{
		OpHadithRead, OpHadithSearch, OpHadithImport, OpHadithVerification,
		OpHadithBatchVerification, OpAIExplanation, OpAIVerification,
		OpCountQuery, OpSafetyEvaluation,
	} {
		if schemas[op] == nil {
			return nil, fmt.Errorf("receipts: no payload schema for operation %s", op)
		}
	}
	return schemas, nil
}

func (s *Service) validatePayload(op OperationType, params map[string]any) error {
	schema := s.schemas[op]
	if schema == nil {
		return fmt.Errorf("receipts: no payload schema for operation %s", op)
	}
	if params == nil {
		params = map[string]any{}
	}

	// Round-trip through JSON so native Go numbers validate the way
	// decoded JSON would.
	raw, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("receipts: encode %s params: %w", op, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("receipts: decode %s params: %w", op, err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("receipts: %s params failed validation: %w", op, err)
	}
	return nil
}
