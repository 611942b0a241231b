package gitfs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/marldb/marl/pkg/core"
)

// encodeCollection serializes a collection in the configured format.
func (c *Connector) encodeCollection(coll core.Collection) ([]byte, error) {
	if coll == nil {
		coll = core.Collection{}
	}
	switch c.config.Format {
	case FormatYAML:
		return yaml.Marshal(coll)
	default:
		data, err := json.MarshalIndent(coll, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// decodeCollection parses a serialized collection.
func (c *Connector) decodeCollection(data []byte) (core.Collection, error) {
	var coll core.Collection
	switch c.config.Format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &coll); err != nil {
			return nil, fmt.Errorf("failed to parse collection: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &coll); err != nil {
			return nil, fmt.Errorf("failed to parse collection: %w", err)
		}
	}
	if coll == nil {
		coll = core.Collection{}
	}
	return coll, nil
}

// tokenOf fingerprints the exact serialized bytes of a collection file.
// An absent file hashes the canonical empty collection, so fresh
// containers still get a stable token.
func (c *Connector) tokenOf(data []byte) core.VersionToken {
	sum := sha256.Sum256(data)
	return core.VersionToken(hex.EncodeToString(sum[:]))
}

// collectionExt returns the file extension for the configured format.
func (c *Connector) collectionExt() string {
	if c.config.Format == FormatYAML {
		return ".yaml"
	}
	return ".json"
}
