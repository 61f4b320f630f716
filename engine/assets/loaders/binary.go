package loaders

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spaghettifunk/ember/engine/renderer/metadata"
)

// SpirvMagic is the first word of every SPIR-V module.
const SpirvMagic uint32 = 0x07230203

// BinaryLoader loads raw bytes. Data is a []byte.
type BinaryLoader struct {
	// RequireSpirv rejects anything that is not a SPIR-V module.
	RequireSpirv bool
}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	defer f.Close()

	buf, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}

	if bl.RequireSpirv {
		if err := validateSpirv(buf); err != nil {
			return nil, errors.Wrapf(err, "invalid shader binary %s", path)
		}
	}

	name := path
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}

	return &metadata.Resource{
		Name:     name,
		Type:     metadata.ResourceTypeBinary,
		FullPath: path,
		DataSize: uint64(len(buf)),
		Data:     buf,
	}, nil
}

func (bl *BinaryLoader) Unload(res *metadata.Resource) error {
	if res == nil {
		return nil
	}
	res.Data = nil
	res.DataSize = 0
	return nil
}

func validateSpirv(b []byte) error {
	if len(b) < 4 || len(b)%4 != 0 {
		return errors.Newf("size %d is not a non-zero multiple of 4", len(b))
	}
	if magic := binary.LittleEndian.Uint32(b); magic != SpirvMagic {
		return errors.Newf("bad magic 0x%08x", magic)
	}
	return nil
}
