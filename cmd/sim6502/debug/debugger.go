package debug

import (
    "fmt"
    "strconv"
    "strings"

    "github.com/jroimartin/gocui"

    sim "github.com/kazzmir/sim6502/lib"
)

/* break when the cpu's PC reaches a specific address */
type Breakpoint struct {
    PC uint16
    Id uint64
}

func (breakpoint *Breakpoint) Hit(cpu *sim.CPUState) bool {
    return breakpoint.PC == cpu.PC
}

type Debugger struct {
    Machine *sim.Machine
    Breakpoints []Breakpoint
    BreakpointId uint64

    /* true once the program stopped for good */
    Finished bool

    command string
    messages []string
    memoryView uint16
}

func MakeDebugger(machine *sim.Machine) *Debugger {
    return &Debugger{
        Machine: machine,
    }
}

func (debugger *Debugger) AddPCBreakpoint(pc uint16) uint64 {
    debugger.BreakpointId += 1
    debugger.Breakpoints = append(debugger.Breakpoints, Breakpoint{
        PC: pc,
        Id: debugger.BreakpointId,
    })
    return debugger.BreakpointId
}

func (debugger *Debugger) RemoveBreakpoint(id uint64){
    var out []Breakpoint
    for _, breakpoint := range debugger.Breakpoints {
        if breakpoint.Id != id {
            out = append(out, breakpoint)
        }
    }
    debugger.Breakpoints = out
}

func (debugger *Debugger) hitBreakpoint() *Breakpoint {
    for i := range debugger.Breakpoints {
        if debugger.Breakpoints[i].Hit(debugger.Machine.CPU) {
            return &debugger.Breakpoints[i]
        }
    }
    return nil
}

func (debugger *Debugger) say(format string, args ...interface{}){
    debugger.messages = append(debugger.messages, fmt.Sprintf(format, args...))
    if len(debugger.messages) > 6 {
        debugger.messages = debugger.messages[len(debugger.messages)-6:]
    }
}

/* exactly one instruction per request, as debug mode demands */
func (debugger *Debugger) Step(){
    if debugger.Finished {
        debugger.say("program is finished, press r to reset")
        return
    }

    running, err := debugger.Machine.StepOne()
    if err != nil {
        debugger.say("%v", err)
        debugger.Finished = true
        return
    }
    if !running {
        debugger.say("program finished")
        debugger.Finished = true
    }
}

/* run until a breakpoint, the end of the program, or a safety cap */
func (debugger *Debugger) Continue(){
    if debugger.Finished {
        debugger.say("program is finished, press r to reset")
        return
    }

    const maxSteps = 1000000
    for i := 0; i < maxSteps; i++ {
        running, err := debugger.Machine.StepOne()
        if err != nil {
            debugger.say("%v", err)
            debugger.Finished = true
            return
        }
        if !running {
            debugger.say("program finished")
            debugger.Finished = true
            return
        }
        if breakpoint := debugger.hitBreakpoint(); breakpoint != nil {
            debugger.say("breakpoint %v at 0x%04x", breakpoint.Id, breakpoint.PC)
            return
        }
        if debugger.Machine.CPU.Waiting {
            debugger.say("cpu is waiting for an interrupt")
            return
        }
    }
    debugger.say("still running after %v steps", maxSteps)
}

func (debugger *Debugger) Reset(){
    debugger.Machine.Reset()
    debugger.Finished = false
    debugger.say("reset, pc=0x%04x", debugger.Machine.CPU.PC)
}

/* the typed command line: break $addr, delete n, mem $addr */
func (debugger *Debugger) runCommand(){
    fields := strings.Fields(debugger.command)
    debugger.command = ""
    if len(fields) == 0 {
        return
    }

    parseAddress := func(text string) (uint16, bool) {
        text = strings.TrimPrefix(text, "$")
        value, err := strconv.ParseUint(text, 16, 16)
        if err != nil {
            debugger.say("bad address %v", text)
            return 0, false
        }
        return uint16(value), true
    }

    switch fields[0] {
        case "break", "b":
            if len(fields) < 2 {
                debugger.say("usage: break $address")
                return
            }
            address, ok := parseAddress(fields[1])
            if !ok {
                return
            }
            id := debugger.AddPCBreakpoint(address)
            debugger.say("breakpoint %v at 0x%04x", id, address)
        case "delete", "d":
            if len(fields) < 2 {
                debugger.say("usage: delete id")
                return
            }
            id, err := strconv.ParseUint(fields[1], 10, 64)
            if err != nil {
                debugger.say("bad breakpoint id %v", fields[1])
                return
            }
            debugger.RemoveBreakpoint(id)
            debugger.say("deleted breakpoint %v", id)
        case "mem", "m":
            if len(fields) < 2 {
                debugger.say("usage: mem $address")
                return
            }
            address, ok := parseAddress(fields[1])
            if !ok {
                return
            }
            debugger.memoryView = address
        default:
            debugger.say("commands: break $addr, delete id, mem $addr")
    }
}

/* set flags print in upper case */
func flagString(cpu *sim.CPUState) string {
    flags := []struct {
        letter byte
        set bool
    }{
        {'n', cpu.GetNegativeFlag()},
        {'v', cpu.GetOverflowFlag()},
        {'d', cpu.GetDecimalFlag()},
        {'i', cpu.GetInterruptDisableFlag()},
        {'z', cpu.GetZeroFlag()},
        {'c', cpu.GetCarryFlag()},
    }

    out := make([]byte, 0, len(flags))
    for _, flag := range flags {
        letter := flag.letter
        if flag.set {
            letter = letter - 'a' + 'A'
        }
        out = append(out, letter)
    }
    return string(out)
}

func (debugger *Debugger) layout(gui *gocui.Gui) error {
    width, height := gui.Size()

    machine := debugger.Machine
    cpu := machine.CPU

    registers, err := gui.SetView("registers", 0, 0, width - 1, 2)
    if err != nil && err != gocui.ErrUnknownView {
        return err
    }
    registers.Clear()
    registers.Title = "registers"
    fmt.Fprintf(registers, "%v  flags:%v", cpu.String(), flagString(cpu))

    code, err := gui.SetView("code", 0, 3, width / 2 - 1, height - 10)
    if err != nil && err != gocui.ErrUnknownView {
        return err
    }
    code.Clear()
    code.Title = "disassembly"
    for _, entry := range sim.Disassemble(cpu.Memory, cpu.PC, height - 15, machine.Table) {
        marker := " "
        if entry.Address == cpu.PC {
            marker = ">"
        }
        fmt.Fprintf(code, "%v %v\n", marker, entry.String())
    }

    memory, err := gui.SetView("memory", width / 2, 3, width - 1, height - 10)
    if err != nil && err != gocui.ErrUnknownView {
        return err
    }
    memory.Clear()
    memory.Title = fmt.Sprintf("memory at 0x%04x", debugger.memoryView)
    fmt.Fprint(memory, cpu.Memory.DumpRange(debugger.memoryView, 16 * (height - 15)))

    output, err := gui.SetView("output", 0, height - 9, width - 1, height - 4)
    if err != nil && err != gocui.ErrUnknownView {
        return err
    }
    output.Clear()
    output.Title = "messages"
    for _, message := range debugger.messages {
        fmt.Fprintln(output, message)
    }

    command, err := gui.SetView("command", 0, height - 3, width - 1, height - 1)
    if err != nil && err != gocui.ErrUnknownView {
        return err
    }
    command.Clear()
    command.Title = "s step  c continue  r reset  : command  q quit"
    fmt.Fprintf(command, ":%v", debugger.command)

    return nil
}

/* single key bindings plus a tiny command line. every handler just
 * mutates the debugger, the layout callback repaints everything.
 */
func Run(machine *sim.Machine) error {
    gui, err := gocui.NewGui(gocui.OutputNormal)
    if err != nil {
        return err
    }
    defer gui.Close()

    debugger := MakeDebugger(machine)
    debugger.memoryView = sim.DefaultStart
    machine.Reset()
    debugger.say("debugger ready, pc=0x%04x", machine.CPU.PC)

    gui.SetManagerFunc(debugger.layout)

    quit := func(gui *gocui.Gui, view *gocui.View) error {
        return gocui.ErrQuit
    }

    typing := false

    handle := func(letter rune, action func()) error {
        return gui.SetKeybinding("", letter, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error {
            if typing {
                debugger.command += string(letter)
                return nil
            }
            action()
            return nil
        })
    }

    err = gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, quit)
    if err != nil {
        return err
    }

    err = handle('s', debugger.Step)
    if err != nil {
        return err
    }
    err = handle('c', debugger.Continue)
    if err != nil {
        return err
    }
    err = handle('r', debugger.Reset)
    if err != nil {
        return err
    }

    err = gui.SetKeybinding("", 'q', gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error {
        if typing {
            debugger.command += "q"
            return nil
        }
        return gocui.ErrQuit
    })
    if err != nil {
        return err
    }

    /* the rest of the printable keys only matter while typing a command */
    for _, letter := range "abdefghijklmnoptuvwxyz0123456789$ " {
        use := letter
        if use == 's' || use == 'c' || use == 'r' || use == 'q' {
            continue
        }
        err = gui.SetKeybinding("", use, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error {
            if typing {
                debugger.command += string(use)
            }
            return nil
        })
        if err != nil {
            return err
        }
    }

    err = gui.SetKeybinding("", ':', gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error {
        typing = true
        debugger.command = ""
        return nil
    })
    if err != nil {
        return err
    }

    err = gui.SetKeybinding("", gocui.KeyEnter, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error {
        if typing {
            typing = false
            debugger.runCommand()
        }
        return nil
    })
    if err != nil {
        return err
    }

    err = gui.SetKeybinding("", gocui.KeyBackspace2, gocui.ModNone, func(gui *gocui.Gui, view *gocui.View) error {
        if typing && len(debugger.command) > 0 {
            debugger.command = debugger.command[:len(debugger.command)-1]
        }
        return nil
    })
    if err != nil {
        return err
    }

    err = gui.MainLoop()
    if err == gocui.ErrQuit {
        return nil
    }
    return err
}
