package main

import (
    "image"
    "image/color"
    "os"

    "golang.org/x/image/bmp"

    sim "github.com/kazzmir/sim6502/lib"
)

/* a framebuffer byte is RRRGGGBB */
func cellColor(value byte) color.RGBA {
    red := (value >> 5) & 0x7
    green := (value >> 2) & 0x7
    blue := value & 0x3
    return color.RGBA{
        R: 36 * red + 3,
        G: 36 * green + 3,
        B: 85 * blue,
        A: 255,
    }
}

/* render the framebuffer region of memory as a full resolution image,
 * each cell a 4x4 block
 */
func renderFramebuffer(memory *sim.Memory) *image.RGBA {
    width := sim.ScreenCellsWide * sim.ScreenPixelSize
    height := sim.ScreenCellsHigh * sim.ScreenPixelSize
    out := image.NewRGBA(image.Rect(0, 0, width, height))

    for cell := 0; cell < sim.ScreenCellsWide * sim.ScreenCellsHigh; cell++ {
        value := memory.Load(sim.ScreenBase + uint16(cell))
        rgba := cellColor(value)
        baseX := (cell % sim.ScreenCellsWide) * sim.ScreenPixelSize
        baseY := (cell / sim.ScreenCellsWide) * sim.ScreenPixelSize
        for y := 0; y < sim.ScreenPixelSize; y++ {
            for x := 0; x < sim.ScreenPixelSize; x++ {
                out.SetRGBA(baseX + x, baseY + y, rgba)
            }
        }
    }

    return out
}

func writeScreenshot(memory *sim.Memory, path string) error {
    file, err := os.Create(path)
    if err != nil {
        return err
    }
    defer file.Close()

    return bmp.Encode(file, renderFramebuffer(memory))
}
