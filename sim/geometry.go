package sim

import (
	"encoding/hex"
	"io"

	"gopkg.in/yaml.v3"
)

// Bank describes one populated bus target and the size of its memory.
type Bank struct {
	Target int    `yaml:"target"`
	Size   uint32 `yaml:"size"`
}

// Geometry describes a simulated device: its identity, the memory behind
// each populated target, the size of the mapping window pool, and any
// seeded XPB register values (the island translation CSRs live there).
type Geometry struct {
	Model     uint32            `yaml:"model"`
	Interface uint16            `yaml:"interface"` // Packed type/unit/channel; see cpp.MakeInterface.
	Serial    string            `yaml:"serial"`    // Hex digits.
	Windows   int               `yaml:"windows"`
	Targets   []Bank            `yaml:"targets"`
	Xpb       map[uint32]uint32 `yaml:"xpb"`
}

// LoadGeometry reads a YAML device description.
func LoadGeometry(r io.Reader) (geom Geometry, err error) {
	err = yaml.NewDecoder(r).Decode(&geom)
	return
}

// serial decodes the geometry's serial number.
func (geom *Geometry) serial() (serial []byte, err error) {
	if geom.Serial == "" {
		return
	}
	return hex.DecodeString(geom.Serial)
}
