//
// Copyright (c) 2024 Markku Rossi
//
// All rights reserved.
//

package library

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type yamlLibrary struct {
	Name  string     `yaml:"name"`
	Cells []yamlCell `yaml:"cells"`
}

type yamlCell struct {
	Name     string    `yaml:"name"`
	Area     float64   `yaml:"area"`
	Output   string    `yaml:"output"`
	Function string    `yaml:"function"`
	Delay    float64   `yaml:"delay"`
	Load     float64   `yaml:"load"`
	Pins     []yamlPin `yaml:"pins"`
}

type yamlPin struct {
	Name           string   `yaml:"name"`
	Phase          string   `yaml:"phase"`
	Load           *float64 `yaml:"load"`
	MaxLoad        float64  `yaml:"max_load"`
	Delay          *float64 `yaml:"delay"`
	RiseBlock      *float64 `yaml:"rise_block"`
	RiseFanout     float64  `yaml:"rise_fanout"`
	FallBlock      *float64 `yaml:"fall_block"`
	FallFanout     float64  `yaml:"fall_fanout"`
	TransLoad      float64  `yaml:"trans_load"`
	TransParasitic float64  `yaml:"trans_parasitic"`
}

func orDefault(v *float64, def float64) float64 {
	if v != nil {
		return *v
	}
	return def
}

// Load reads a YAML library description. Pin timing values not
// specified for a pin default to the cell's delay and load values.
func Load(in io.Reader) (*Library, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}
	var y yamlLibrary
	if err := yaml.UnmarshalStrict(data, &y); err != nil {
		return nil, errors.Wrap(err, "library")
	}
	var cells []*Cell
	for _, yc := range y.Cells {
		cell := &Cell{
			Name:     yc.Name,
			Area:     yc.Area,
			Output:   yc.Output,
			Function: yc.Function,
		}
		for _, yp := range yc.Pins {
			delay := orDefault(yp.Delay, yc.Delay)
			pin := &Pin{
				Name: yp.Name,
				Timing: Timing{
					Load:           orDefault(yp.Load, yc.Load),
					MaxLoad:        yp.MaxLoad,
					RiseBlock:      orDefault(yp.RiseBlock, delay),
					RiseFanout:     yp.RiseFanout,
					FallBlock:      orDefault(yp.FallBlock, delay),
					FallFanout:     yp.FallFanout,
					TransLoad:      yp.TransLoad,
					TransParasitic: yp.TransParasitic,
				},
			}
			switch strings.ToUpper(yp.Phase) {
			case "", "UNKNOWN":
			case "INV":
				pin.Phase = Inv
			case "NONINV":
				pin.Phase = NonInv
			default:
				return nil, errors.Wrapf(ErrInvalidCell,
					"%s: invalid pin phase '%s'", yc.Name, yp.Phase)
			}
			cell.Pins = append(cell.Pins, pin)
		}
		if len(cell.Pins) == 0 {
			// Pins are derived from the function; apply the cell
			// level defaults after resolving them.
			if err := cell.resolve(); err != nil {
				return nil, err
			}
			for _, pin := range cell.Pins {
				pin.Load = yc.Load
				pin.RiseBlock = yc.Delay
				pin.FallBlock = yc.Delay
			}
		}
		cells = append(cells, cell)
	}
	return New(y.Name, cells)
}

// LoadFile reads a YAML library from the file.
func LoadFile(file string) (*Library, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Load(f)
}

const defaultLibrary = `
name: unit
cells:
- {name: ZERO,  area: 0, function: "CONST0"}
- {name: ONE,   area: 0, function: "CONST1"}
- {name: INV,   area: 1, delay: 1, load: 1, function: "!a"}
- {name: BUF,   area: 2, delay: 1, load: 1, function: "a"}
- {name: NAND2, area: 2, delay: 1, load: 1, function: "!(a*b)"}
- {name: NOR2,  area: 2, delay: 1, load: 1, function: "!(a+b)"}
- {name: AND2,  area: 3, delay: 1, load: 1, function: "a*b"}
- {name: OR2,   area: 3, delay: 1, load: 1, function: "a+b"}
- {name: XOR2,  area: 5, delay: 2, load: 1, function: "a^b"}
- {name: XNOR2, area: 5, delay: 2, load: 1, function: "!(a^b)"}
- {name: NAND3, area: 3, delay: 1.5, load: 1, function: "!(a*b*c)"}
- {name: NOR3,  area: 3, delay: 1.5, load: 1, function: "!(a+b+c)"}
- {name: AOI21, area: 3, delay: 1.5, load: 1, function: "!(a*b+c)"}
- {name: OAI21, area: 3, delay: 1.5, load: 1, function: "!((a+b)*c)"}
- {name: NAND4, area: 4, delay: 2, load: 1, function: "!(a*b*c*d)"}
- {name: AOI22, area: 4, delay: 2, load: 1, function: "!(a*b+c*d)"}
- {name: OAI22, area: 4, delay: 2, load: 1, function: "!((a+b)*(c+d))"}
- {name: MUX2,  area: 6, delay: 2, load: 1, function: "s*b+!s*a"}
`

// Default returns a small generic library with unit delays.
func Default() *Library {
	lib, err := Load(strings.NewReader(defaultLibrary))
	if err != nil {
		panic(err)
	}
	return lib
}
