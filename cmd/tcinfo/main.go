// tcinfo prints the tensor-core support of a device adapter: its devices and
// capabilities, the supported tile and multiply-accumulate tables, and
// optionally runs a small demo multiply-accumulate to sanity-check the
// adapter.
//
// By default it uses the adapter configured in $TENSORCORES_DEVICE or the
// first registered one (the simulated warp device, if nothing else is linked
// in). Example:
//
//	$ tcinfo -mad -demo
package main

import (
	"flag"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/tensorcores/devices"
	_ "github.com/gomlx/tensorcores/devices/simwarp"
	"github.com/gomlx/tensorcores/isa"
	"github.com/gomlx/tensorcores/types/tiles"
	"github.com/gomlx/tensorcores/warp"
	"github.com/janpfeifer/must"
	"github.com/x448/float16"
)

var (
	flagDevice = flag.String("device", "", `Device adapter configuration, formatted as "<name>:<config>". `+
		`Defaults to $TENSORCORES_DEVICE, or to the first registered adapter.`)
	flagTiles = flag.Bool("tiles", false, "Lists the supported tile descriptors and their fragment layouts.")
	flagMAD   = flag.Bool("mad", false, "Lists the supported multiply-accumulate combinations.")
	flagDemo  = flag.Bool("demo", false, "Runs a demo m16n16k16 f16*f16+f32 multiply-accumulate on the device.")
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)
	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 0, 4)
)

func newTable(headers ...string) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerRowStyle
			case row%2 == 0:
				return oddRowStyle
			default:
				return evenRowStyle
			}
		}).
		Headers(headers...)
}

func main() {
	flag.Parse()

	var device devices.Device
	if *flagDevice != "" {
		device = must.M1(devices.NewWithConfig(*flagDevice))
	} else {
		device = must.M1(devices.New())
	}
	defer device.Finalize()
	reportDevice(device)
	if *flagTiles {
		reportTiles()
	}
	if *flagMAD {
		reportMAD()
	}
	if *flagDemo {
		runDemo(device)
	}
}

func reportDevice(device devices.Device) {
	fmt.Println(titleStyle.Render(fmt.Sprintf("Adapter %q", device.Name())))
	caps := device.Capabilities()
	dtypesList := make([]string, 0, len(caps.DTypes))
	for dtype, ok := range caps.DTypes {
		if ok {
			dtypesList = append(dtypesList, dtype.String())
		}
	}
	sort.Strings(dtypesList)
	table := newTable("", "")
	table.Row("Description", device.Description())
	table.Row("Devices", fmt.Sprintf("%d", device.NumDevices()))
	table.Row("Tensor cores", fmt.Sprintf("%v", caps.TensorCores))
	table.Row("Element types", fmt.Sprintf("%v", dtypesList))
	fmt.Println(table.Render())
}

func reportTiles() {
	fmt.Println(titleStyle.Render("Supported tiles"))
	supported := tiles.SupportedTiles()
	sort.Slice(supported, func(i, j int) bool { return supported[i].String() < supported[j].String() })
	table := newTable("Tile", "Storage", "Slots/lane", "Load op")
	for _, t := range supported {
		layout := must.M1(tiles.Resolve(t))
		instruction := must.M1(isa.SelectLoad(t))
		table.Row(t.String(), layout.StorageDType.String(),
			fmt.Sprintf("%d", layout.SlotsPerLane), instruction.Op.String())
	}
	fmt.Println(table.Render())
}

func reportMAD() {
	fmt.Println(titleStyle.Render("Supported multiply-accumulates"))
	entries := isa.MADEntries()
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Shape != entries[j].Shape {
			return entries[i].Shape.String() < entries[j].Shape.String()
		}
		if entries[i].Operand != entries[j].Operand {
			return entries[i].Operand < entries[j].Operand
		}
		return entries[i].Accum < entries[j].Accum
	})
	table := newTable("Shape", "Operands", "Accumulator", "Op")
	for _, entry := range entries {
		instruction := must.M1(isa.SelectMAD(entry.Operand, entry.Accum,
			entry.Shape.M, entry.Shape.K, entry.Shape.N, tiles.RowMajor, tiles.RowMajor))
		table.Row(entry.Shape.String(), entry.Operand.String(), entry.Accum.String(),
			instruction.Op.String())
	}
	fmt.Println(table.Render())
}

// runDemo computes a 16x16 f16 identity times a ramp, accumulated into zeros,
// and prints the first row of the f32 result.
func runDemo(device devices.Device) {
	fmt.Println(titleStyle.Render("Demo: m16n16k16, f16*f16+f32"))
	g := must.M1(device.NewGroup(0))

	const dim = 16
	aData := make([]float16.Float16, dim*dim)
	bData := make([]float16.Float16, dim*dim)
	for i := 0; i < dim; i++ {
		aData[i*dim+i] = float16.Fromfloat32(1)
		for j := 0; j < dim; j++ {
			bData[i*dim+j] = float16.Fromfloat32(float32(i*dim + j))
		}
	}

	a := must.M1(warp.NewMatrix(g, tiles.Make(dtypes.Float16, tiles.UseA, dim, dim, tiles.RowMajor)))
	b := must.M1(warp.NewMatrix(g, tiles.Make(dtypes.Float16, tiles.UseB, dim, dim, tiles.RowMajor)))
	c := must.M1(warp.NewMatrix(g, tiles.Make(dtypes.Float32, tiles.UseAccumulator, dim, dim, tiles.RowMajor)))
	must.M(warp.Load(g, a, aData, dim))
	must.M(warp.Load(g, b, bData, dim))
	must.M(warp.Fill(g, c, 0))

	d := must.M1(warp.MAD(g, a, b, c))
	result := make([]float32, dim*dim)
	must.M(warp.Store(g, d, result, dim))
	fmt.Printf("\td[0, :] = %v\n", result[:dim])
}
