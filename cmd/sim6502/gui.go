package main

import (
    "bytes"
    "encoding/binary"
    "log"
    "math"

    "github.com/hajimehoshi/ebiten/v2"
    audiolib "github.com/hajimehoshi/ebiten/v2/audio"
    "github.com/hajimehoshi/ebiten/v2/inpututil"

    "github.com/kazzmir/sim6502/cmd/sim6502/common"
    sim "github.com/kazzmir/sim6502/lib"
)

const AudioSampleRate = 44100

/* short square wave played for every beep request */
type Beeper struct {
    context *audiolib.Context
    wave []byte
}

func MakeBeeper() *Beeper {
    context := audiolib.NewContext(AudioSampleRate)

    frequency := 880.0
    duration := 0.15
    samples := int(duration * AudioSampleRate)

    var wave bytes.Buffer
    for i := 0; i < samples; i++ {
        phase := math.Sin(2 * math.Pi * frequency * float64(i) / AudioSampleRate)
        var sample float32 = 0.2
        if phase < 0 {
            sample = -0.2
        }
        /* stereo, 32-bit float */
        binary.Write(&wave, binary.LittleEndian, sample)
        binary.Write(&wave, binary.LittleEndian, sample)
    }

    return &Beeper{
        context: context,
        wave: wave.Bytes(),
    }
}

func (beeper *Beeper) Beep(){
    player, err := beeper.context.NewPlayerF32(bytes.NewReader(beeper.wave))
    if err != nil {
        log.Printf("Could not play beep: %v", err)
        return
    }
    player.Play()
}

/* the framebuffer collaborator drawing into an offscreen image that the
 * gui scales up every frame
 */
type Screen struct {
    image *ebiten.Image
}

func MakeScreen() *Screen {
    width := sim.ScreenCellsWide * sim.ScreenPixelSize
    height := sim.ScreenCellsHigh * sim.ScreenPixelSize
    return &Screen{
        image: ebiten.NewImage(width, height),
    }
}

func (screen *Screen) DrawPixel(x int, y int, value byte){
    rgba := cellColor(value)
    baseX := x * sim.ScreenPixelSize
    baseY := y * sim.ScreenPixelSize
    for dy := 0; dy < sim.ScreenPixelSize; dy++ {
        for dx := 0; dx < sim.ScreenPixelSize; dx++ {
            screen.image.Set(baseX + dx, baseY + dy, rgba)
        }
    }
}

func (screen *Screen) ClearScreen(){
    screen.image.Clear()
}

var mappedKeys = map[ebiten.Key]uint16{
    ebiten.KeyArrowLeft: sim.KeyLeft,
    ebiten.KeyArrowRight: sim.KeyRight,
    ebiten.KeyArrowUp: sim.KeyUp,
    ebiten.KeyArrowDown: sim.KeyDown,
    ebiten.KeyEnter: sim.KeyEnter,
}

var mappedMouseButtons = map[ebiten.MouseButton]uint16{
    ebiten.MouseButtonLeft: sim.MouseLeft,
    ebiten.MouseButtonRight: sim.MouseRight,
    ebiten.MouseButtonMiddle: sim.MouseMiddle,
}

type Game struct {
    machine *sim.Machine
    screen *Screen
    screenshotPath string
    done bool
}

func (game *Game) Update() error {
    machine := game.machine

    if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
        machine.RequestStop()
        return ebiten.Termination
    }

    for key, address := range mappedKeys {
        if inpututil.IsKeyJustPressed(key) {
            machine.SetKeyState(address, true)
        }
        if inpututil.IsKeyJustReleased(key) {
            machine.SetKeyState(address, false)
        }
    }

    if machine.KeyboardInterrupt {
        for _, key := range inpututil.AppendJustPressedKeys(nil) {
            machine.KeyboardEvent(byte(key))
        }
    }

    var buttons byte = 0
    for button, address := range mappedMouseButtons {
        down := ebiten.IsMouseButtonPressed(button)
        machine.SetMouseButton(address, down)
        if down {
            buttons |= byte(1) << (address - sim.MouseLeft)
        }
    }
    for button := range mappedMouseButtons {
        if inpututil.IsMouseButtonJustPressed(button) {
            machine.MouseEvent(buttons)
            break
        }
    }

    if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
        err := writeScreenshot(machine.CPU.Memory, "screen.bmp")
        if err != nil {
            log.Printf("Could not save screenshot: %v", err)
        } else {
            machine.Status.Log("Saved screen.bmp")
        }
    }

    if game.done {
        return nil
    }

    keepGoing, err := machine.RunBatch()
    if err != nil {
        machine.Status.LogError(err.Error())
        game.done = true
        return nil
    }
    if !keepGoing {
        game.done = true
        machine.Status.Log("Program finished.")
        if game.screenshotPath != "" {
            err := writeScreenshot(machine.CPU.Memory, game.screenshotPath)
            if err != nil {
                log.Printf("Could not save screenshot: %v", err)
            }
        }
    }

    return nil
}

func (game *Game) Draw(target *ebiten.Image){
    var options ebiten.DrawImageOptions
    target.DrawImage(game.screen.image, &options)
}

func (game *Game) Layout(outsideWidth int, outsideHeight int) (int, int) {
    return sim.ScreenCellsWide * sim.ScreenPixelSize, sim.ScreenCellsHigh * sim.ScreenPixelSize
}

/* open the window and drive the machine from the frame clock. one batch
 * of instructions runs per frame, so the pacing parameter still applies.
 */
func RunGui(machine *sim.Machine, config common.Config, screenshotPath string) error {
    screen := MakeScreen()
    machine.CPU.Memory.Video = screen
    machine.CPU.Memory.Audio = MakeBeeper()

    machine.Reset()

    width := sim.ScreenCellsWide * sim.ScreenPixelSize
    height := sim.ScreenCellsHigh * sim.ScreenPixelSize
    ebiten.SetWindowSize(width * config.WindowScale, height * config.WindowScale)
    ebiten.SetWindowTitle("sim6502")

    game := &Game{
        machine: machine,
        screen: screen,
        screenshotPath: screenshotPath,
    }

    err := ebiten.RunGame(game)
    if err == ebiten.Termination {
        return nil
    }
    return err
}
