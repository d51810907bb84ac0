package lib

import (
    "fmt"
)

/* memory map
 * http://www.6502.org/users/obelisk/6502/architecture.html
 *
 * 0x0000-0x00ff zero page, 0x00fe is the random register
 * 0x0100-0x01ff stack
 * 0x0200-0x06af framebuffer, 40x30 cells
 * 0x06b0-0x06ff mapped i/o
 * 0x0700-0x7fff general ram
 * 0x8000-0xffff program area and vectors
 */
const RandomRegister uint16 = 0x00fe
const StackBase uint16 = 0x0100

const ScreenBase uint16 = 0x0200
const ScreenLast uint16 = 0x06af
const ScreenClearRegister uint16 = 0x06b0
const BeepRegister uint16 = 0x06b1

const KeyLeft uint16 = 0x06e0
const KeyRight uint16 = 0x06e1
const KeyUp uint16 = 0x06e2
const KeyDown uint16 = 0x06e3
const KeyEnter uint16 = 0x06e4
/* raw keycode for the maskable keyboard interrupt, shared with KeyLeft */
const KeyCodeRegister uint16 = 0x06e0

const MouseLeft uint16 = 0x06f0
const MouseRight uint16 = 0x06f1
const MouseMiddle uint16 = 0x06f2

const NMIVector uint16 = 0xfffa
const ResetVector uint16 = 0xfffc
const IRQVector uint16 = 0xfffe

const DefaultStart uint16 = 0x0800

/* the framebuffer is 40x30 cells, each cell is a 4x4 block of screen pixels */
const ScreenCellsWide = 40
const ScreenCellsHigh = 30
const ScreenPixelSize = 4

/* collaborators wired in by the host. every one of these has a do-nothing
 * default so the core can run headless and in tests.
 */
type VideoOutput interface {
    DrawPixel(x int, y int, color byte)
    ClearScreen()
}

type AudioOutput interface {
    Beep()
}

type TextOutput interface {
    /* code 13 is a newline */
    WriteChar(code uint16)
}

type InputSource interface {
    /* blocking prompt for a line of input, used by the IN opcode */
    ReadLine() []byte
}

type StatusLog interface {
    Log(text string)
    LogError(text string)
}

type NullVideo struct {}

func (null *NullVideo) DrawPixel(x int, y int, color byte){
}

func (null *NullVideo) ClearScreen(){
}

type NullAudio struct {}

func (null *NullAudio) Beep(){
}

type NullText struct {}

func (null *NullText) WriteChar(code uint16){
}

type NullInput struct {}

func (null *NullInput) ReadLine() []byte {
    return nil
}

type NullStatus struct {}

func (null *NullStatus) Log(text string){
}

func (null *NullStatus) LogError(text string){
}

/* 64k of cells. a cell that has never been written holds no value at all,
 * which is distinct from holding 0. the Written bitmap tracks that.
 */
type Memory struct {
    Data []byte
    Written []bool

    Video VideoOutput
    Audio AudioOutput
}

func NewMemory() *Memory {
    return &Memory{
        Data: make([]byte, 0x10000),
        Written: make([]bool, 0x10000),
        Video: &NullVideo{},
        Audio: &NullAudio{},
    }
}

/* forget everything, as if the machine was just powered on */
func (memory *Memory) Reset() {
    for i := range memory.Data {
        memory.Data[i] = 0
        memory.Written[i] = false
    }
}

func (memory *Memory) IsDefined(address uint16) bool {
    return memory.Written[address]
}

func (memory *Memory) Load(address uint16) byte {
    return memory.Data[address]
}

/* little endian */
func (memory *Memory) LoadWord(address uint16) uint16 {
    low := uint16(memory.Load(address))
    high := uint16(memory.Load(address + 1))
    return (high << 8) | low
}

/* a write with no i/o side effects. the assembler emits through this, as
 * does pass-2 patching, so filling the framebuffer region with data does
 * not paint the screen.
 */
func (memory *Memory) StoreDirect(address uint16, value byte) {
    memory.Data[address] = value
    memory.Written[address] = true
}

/* mark a cell as holding no value. the assembler uses this for label
 * placeholders that pass 2 will overwrite.
 */
func (memory *Memory) StoreUndefined(address uint16) {
    memory.Data[address] = 0
    memory.Written[address] = false
}

/* a write on behalf of the running program. mapped regions dispatch to the
 * collaborators.
 */
func (memory *Memory) Store(address uint16, value byte) {
    memory.StoreDirect(address, value)

    if address >= ScreenBase && address <= ScreenLast {
        offset := int(address - ScreenBase)
        memory.Video.DrawPixel(offset % ScreenCellsWide, offset / ScreenCellsWide, value)
        return
    }

    switch address {
        case ScreenClearRegister:
            if value != 0 {
                memory.Video.ClearScreen()
                memory.StoreDirect(address, 0)
            }
        case BeepRegister:
            if value != 0 {
                memory.Audio.Beep()
                memory.StoreDirect(address, 0)
            }
    }
}

/* zero out the keyboard and mouse mapped cells. done on reset so a stale
 * key press doesn't leak into the next program.
 */
func (memory *Memory) ClearInput() {
    for address := KeyLeft; address <= KeyEnter; address++ {
        memory.StoreDirect(address, 0)
    }
    for address := MouseLeft; address <= MouseMiddle; address++ {
        memory.StoreDirect(address, 0)
    }
}

/* render up to 'count' bytes starting at 'start' as a hexdump. cells that
 * were never written show as '--'.
 */
func (memory *Memory) DumpRange(start uint16, count int) string {
    out := ""
    address := uint32(start)
    for count > 0 {
        line := fmt.Sprintf("%04x:", address)
        for i := 0; i < 16 && count > 0; i++ {
            if address > 0xffff {
                break
            }
            if memory.IsDefined(uint16(address)) {
                line += fmt.Sprintf(" %02x", memory.Load(uint16(address)))
            } else {
                line += " --"
            }
            address += 1
            count -= 1
        }
        out += line + "\n"
        if address > 0xffff {
            break
        }
    }
    return out
}
