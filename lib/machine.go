package lib

import (
    "context"
    "fmt"
    "sync/atomic"
    "time"
)

/* Machine ties the pieces together: one cpu, one memory image, one
 * assembler over that image, and the pacing state for the step loop.
 */
type Machine struct {
    CPU *CPUState
    Table InstructionTable
    Assembler *Assembler

    Status StatusLog

    /* how many instructions to run per tick, and how long a tick is.
     * Run treats an interval of zero or less as a 1ms tick.
     */
    StepsPerTick int
    TickInterval time.Duration

    /* toggles for routing host input events through the irq vector */
    KeyboardInterrupt bool
    MouseInterrupt bool

    Executing bool

    stop atomic.Bool
}

const DefaultStepsPerTick = 97

func NewMachine() *Machine {
    cpu := StartupState()
    return &Machine{
        CPU: cpu,
        Table: MakeInstructionTable(),
        Assembler: NewAssembler(cpu.Memory),
        Status: &NullStatus{},
        StepsPerTick: DefaultStepsPerTick,
    }
}

/* assemble into the machine's memory. on failure the numbered error and a
 * summary line go to the status sink and the beeper sounds, matching what
 * a bad STA $06B1 would do.
 */
func (machine *Machine) AssembleSource(source string) bool {
    err := machine.Assembler.Assemble(source)
    if err != nil {
        machine.Status.LogError(err.Error())
        machine.Status.LogError("Could not assemble code.")
        machine.CPU.Memory.Audio.Beep()
        return false
    }
    machine.Status.Log(fmt.Sprintf("Code assembled successfully, %v bytes.", machine.Assembler.Emitted))
    return true
}

func (machine *Machine) Reset() {
    machine.CPU.Reset()
}

/* cooperative cancellation: observed between steps */
func (machine *Machine) RequestStop() {
    machine.stop.Store(true)
}

func (machine *Machine) StopRequested() bool {
    return machine.stop.Load()
}

/* exactly one instruction, for debug stepping */
func (machine *Machine) StepOne() (bool, error) {
    return machine.CPU.Step(machine.Table)
}

/* run up to StepsPerTick instructions. returns false when the program
 * stopped, was stopped, or failed.
 */
func (machine *Machine) RunBatch() (bool, error) {
    for i := 0; i < machine.StepsPerTick; i++ {
        if machine.stop.Load() {
            return false, nil
        }

        running, err := machine.CPU.Step(machine.Table)
        if err != nil {
            return false, err
        }
        if !running {
            return false, nil
        }
        if machine.CPU.Waiting {
            /* nothing more happens until an interrupt, so give the
             * host its tick back
             */
            return true, nil
        }
    }
    return true, nil
}

/* drive the step loop from a ticker until the program ends or the context
 * is cancelled. front ends with their own frame clock call RunBatch
 * directly instead.
 */
func (machine *Machine) Run(quit context.Context) error {
    machine.stop.Store(false)
    machine.Executing = true
    defer func(){
        machine.Executing = false
    }()

    interval := machine.TickInterval
    if interval <= 0 {
        interval = time.Millisecond
    }

    ticker := time.NewTicker(interval)
    defer ticker.Stop()

    for {
        select {
            case <-quit.Done():
                return nil
            case <-ticker.C:
                keepGoing, err := machine.RunBatch()
                if err != nil {
                    machine.Status.LogError(err.Error())
                    return err
                }
                if !keepGoing {
                    return nil
                }
        }
    }
}

/* a key with a mapped cell went down or up */
func (machine *Machine) SetKeyState(address uint16, down bool){
    if address < KeyLeft || address > KeyEnter {
        return
    }
    var value byte = 0
    if down {
        value = 1
    }
    machine.CPU.Memory.StoreDirect(address, value)
}

/* raw keycode path. when the keyboard interrupt toggle is on the code is
 * made visible at the keycode register and the cpu vectors through the
 * irq vector, unless interrupts are masked.
 */
func (machine *Machine) KeyboardEvent(code byte){
    if !machine.KeyboardInterrupt {
        return
    }
    machine.CPU.Memory.StoreDirect(KeyCodeRegister, code)
    machine.CPU.Interrupt()
}

func (machine *Machine) SetMouseButton(address uint16, down bool){
    if address < MouseLeft || address > MouseMiddle {
        return
    }
    var value byte = 0
    if down {
        value = 1
    }
    machine.CPU.Memory.StoreDirect(address, value)
}

/* buttons mask path for the mouse interrupt toggle */
func (machine *Machine) MouseEvent(buttons byte){
    if !machine.MouseInterrupt {
        return
    }
    machine.CPU.Memory.StoreDirect(MouseLeft, buttons)
    machine.CPU.Interrupt()
}

/* wake a cpu that executed WAI without delivering an interrupt */
func (machine *Machine) ResumeFromWait() {
    machine.CPU.Waiting = false
}
