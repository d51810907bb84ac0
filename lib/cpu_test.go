package lib

import (
    "testing"
)

func makeTestCPU(program []byte, at uint16) *CPUState {
    cpu := StartupState()
    for i, value := range program {
        cpu.Memory.StoreDirect(at + uint16(i), value)
    }
    cpu.PC = at
    return cpu
}

/* run until the program stops on its own */
func runTestCPU(test *testing.T, cpu *CPUState, maxSteps int){
    table := MakeInstructionTable()
    for i := 0; i < maxSteps; i++ {
        running, err := cpu.Step(table)
        if err != nil {
            test.Fatalf("could not run cpu: %v", err)
        }
        if !running {
            return
        }
    }
    test.Fatalf("program did not stop after %v steps", maxSteps)
}

func TestCPUSimple(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xa9, 0x01,       // lda #$01
        0x8d, 0x00, 0x02, // sta $0200
        0xa9, 0x05,       // lda #$05
        0x8d, 0x01, 0x02, // sta $0201
        0xa9, 0x08,       // lda #$08
        0x8d, 0x02, 0x02, // sta $0202
        0x02,             // hlt
    }, 0x0800)

    runTestCPU(test, cpu, 50)

    if cpu.A != 0x8 {
        test.Fatalf("A register expected to be 0x8 but was 0x%x", cpu.A)
    }

    if cpu.Memory.Load(0x200) != 0x1 {
        test.Fatalf("expected memory location 0x200 to contain 0x1 but was 0x%x", cpu.Memory.Load(0x200))
    }

    if cpu.Memory.Load(0x201) != 0x5 {
        test.Fatalf("expected memory location 0x201 to contain 0x5 but was 0x%x", cpu.Memory.Load(0x201))
    }

    if cpu.Memory.Load(0x202) != 0x8 {
        test.Fatalf("expected memory location 0x202 to contain 0x8 but was 0x%x", cpu.Memory.Load(0x202))
    }
}

/* adc #v from a clean state: A=v, no carry, no overflow, Z and N straight
 * from the value
 */
func TestADCImmediateFromZero(test *testing.T){
    for value := 0; value < 256; value++ {
        cpu := makeTestCPU([]byte{
            0x69, byte(value), // adc #value
            0x02,              // hlt
        }, 0x0800)
        cpu.Status = FlagUnused

        runTestCPU(test, cpu, 5)

        if cpu.A != byte(value) {
            test.Fatalf("adc #%v: A expected 0x%x but was 0x%x", value, value, cpu.A)
        }
        if cpu.GetCarryFlag() {
            test.Fatalf("adc #%v: carry should be clear", value)
        }
        if cpu.GetOverflowFlag() {
            test.Fatalf("adc #%v: overflow should be clear", value)
        }
        if cpu.GetZeroFlag() != (value == 0) {
            test.Fatalf("adc #%v: zero flag wrong", value)
        }
        if cpu.GetNegativeFlag() != (value >= 128) {
            test.Fatalf("adc #%v: negative flag wrong", value)
        }
    }
}

func toBCD(value int) byte {
    return byte((value / 10) << 4 | (value % 10))
}

/* decimal mode addition is a packed bcd sum modulo 100 with carry set on
 * overflow past 99
 */
func TestBCDAddition(test *testing.T){
    for a := 0; a < 100; a++ {
        for b := 0; b < 100; b++ {
            cpu := makeTestCPU([]byte{
                0xf8,          // sed
                0x18,          // clc
                0xa9, toBCD(a), // lda #a
                0x69, toBCD(b), // adc #b
                0x02,           // hlt
            }, 0x0800)

            runTestCPU(test, cpu, 10)

            expected := toBCD((a + b) % 100)
            if cpu.A != expected {
                test.Fatalf("bcd %v+%v: A expected 0x%02x but was 0x%02x", a, b, expected, cpu.A)
            }
            if cpu.GetCarryFlag() != (a + b >= 100) {
                test.Fatalf("bcd %v+%v: carry flag wrong", a, b)
            }
        }
    }
}

func TestBCDWrapAround(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xa9, 0x99, // lda #$99
        0xf8,       // sed
        0x18,       // clc
        0x69, 0x01, // adc #$01
        0x02,       // hlt
    }, 0x0800)

    runTestCPU(test, cpu, 10)

    if cpu.A != 0x00 {
        test.Fatalf("A register expected to be 0x00 but was 0x%x", cpu.A)
    }
    if !cpu.GetCarryFlag() {
        test.Fatalf("expected carry flag to be set")
    }
    if !cpu.GetZeroFlag() {
        test.Fatalf("expected zero flag to be set")
    }
}

func TestBCDSubtraction(test *testing.T){
    for a := 0; a < 100; a++ {
        for b := 0; b <= a; b++ {
            cpu := makeTestCPU([]byte{
                0xf8,           // sed
                0x38,           // sec
                0xa9, toBCD(a), // lda #a
                0xe9, toBCD(b), // sbc #b
                0x02,           // hlt
            }, 0x0800)

            runTestCPU(test, cpu, 10)

            expected := toBCD(a - b)
            if cpu.A != expected {
                test.Fatalf("bcd %v-%v: A expected 0x%02x but was 0x%02x", a, b, expected, cpu.A)
            }
            if !cpu.GetCarryFlag() {
                test.Fatalf("bcd %v-%v: carry should stay set when no borrow happens", a, b)
            }
        }
    }
}

func TestStackRoundTrip(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xa9, 0x11, // lda #$11
        0x48,       // pha
        0xa9, 0x22, // lda #$22
        0x48,       // pha
        0xa9, 0x33, // lda #$33
        0x48,       // pha
        0xa9, 0x00, // lda #$00
        0x68,       // pla
        0x68,       // pla
        0x68,       // pla
        0x02,       // hlt
    }, 0x0800)

    startSP := cpu.SP
    runTestCPU(test, cpu, 50)

    if cpu.A != 0x11 {
        test.Fatalf("A register expected to be 0x11 but was 0x%x", cpu.A)
    }
    if cpu.SP != startSP {
        test.Fatalf("SP expected to return to 0x%x but was 0x%x", startSP, cpu.SP)
    }
}

func TestSubroutine(test *testing.T){
    cpu := makeTestCPU([]byte{
        0x20, 0x07, 0x08, // jsr $0807
        0xa0, 0x10,       // ldy #$10
        0x02,             // hlt
        0xea,             // nop, never runs
        0xa2, 0x03,       // ldx #$03
        0xe8,             // inx
        0x60,             // rts
    }, 0x0800)

    startSP := cpu.SP
    runTestCPU(test, cpu, 50)

    if cpu.X != 0x4 {
        test.Fatalf("X register expected to be 0x4 but was 0x%x", cpu.X)
    }
    if cpu.Y != 0x10 {
        test.Fatalf("Y register expected to be 0x10 but was 0x%x", cpu.Y)
    }
    if cpu.SP != startSP {
        test.Fatalf("SP expected to return to 0x%x but was 0x%x", startSP, cpu.SP)
    }
}

func TestBranchTaken(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xa2, 0x08,       // ldx #$08
        0xca,             // dex
        0x8e, 0x00, 0x02, // stx $0200
        0xe0, 0x03,       // cpx #$03
        0xd0, 0xf8,       // bne -8
        0x8e, 0x01, 0x02, // stx $0201
        0x02,             // hlt
    }, 0x0800)

    runTestCPU(test, cpu, 100)

    if cpu.X != 0x03 {
        test.Fatalf("X register expected to be 0x03 but was 0x%x", cpu.X)
    }
    if cpu.Memory.Load(0x200) != 0x3 {
        test.Fatalf("expected memory location 0x200 to be 0x3 but was 0x%x", cpu.Memory.Load(0x200))
    }
    if cpu.Memory.Load(0x201) != 0x3 {
        test.Fatalf("expected memory location 0x201 to be 0x3 but was 0x%x", cpu.Memory.Load(0x201))
    }
}

/* a branch that falls through advances the PC by two */
func TestBranchNotTaken(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xa9, 0x01, // lda #$01, clears the zero flag
        0xf0, 0x10, // beq +16
        0x02,       // hlt
    }, 0x0800)

    runTestCPU(test, cpu, 10)

    if cpu.PC != 0x0805 {
        test.Fatalf("PC expected to be 0x0805 but was 0x%04x", cpu.PC)
    }
}

func TestBRKPushesAndVectors(test *testing.T){
    cpu := makeTestCPU([]byte{
        0x00,       // brk
    }, 0x0800)

    /* irq vector points at a handler that halts */
    cpu.Memory.StoreDirect(IRQVector, 0x00)
    cpu.Memory.StoreDirect(IRQVector + 1, 0x90)
    cpu.Memory.StoreDirect(0x9000, 0x02) // hlt

    runTestCPU(test, cpu, 10)

    if cpu.PC != 0x9001 {
        test.Fatalf("PC expected to be 0x9001 but was 0x%04x", cpu.PC)
    }

    /* the pushed address is two past the brk opcode, the pushed status
     * has the break flag set
     */
    status := cpu.Memory.Load(StackBase + 0x00fd)
    low := cpu.Memory.Load(StackBase + 0x00fe)
    high := cpu.Memory.Load(StackBase + 0x00ff)

    if high != 0x08 || low != 0x02 {
        test.Fatalf("pushed return address expected 0x0802 but was 0x%02x%02x", high, low)
    }
    if status & FlagBreak == 0 {
        test.Fatalf("pushed status expected to have the break flag set, was 0x%02x", status)
    }
    if !cpu.GetInterruptDisableFlag() {
        test.Fatalf("interrupt disable flag expected after brk")
    }
}

func TestRTIRestoresState(test *testing.T){
    cpu := makeTestCPU([]byte{
        0x58,       // cli
        0x00,       // brk
        0xea,       // padding byte skipped by brk
        0xa9, 0x07, // lda #$07
        0x02,       // hlt
    }, 0x0800)

    cpu.Memory.StoreDirect(IRQVector, 0x00)
    cpu.Memory.StoreDirect(IRQVector + 1, 0x90)
    cpu.Memory.StoreDirect(0x9000, 0x40) // rti

    runTestCPU(test, cpu, 20)

    if cpu.A != 0x07 {
        test.Fatalf("A register expected to be 0x07 but was 0x%x", cpu.A)
    }
}

func TestHardwareInterruptClearsBreakFlag(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xea, // nop
    }, 0x0800)

    cpu.Memory.StoreDirect(IRQVector, 0x00)
    cpu.Memory.StoreDirect(IRQVector + 1, 0x90)

    cpu.SetInterruptDisableFlag(false)
    cpu.Interrupt()

    if cpu.PC != 0x9000 {
        test.Fatalf("PC expected to be 0x9000 but was 0x%04x", cpu.PC)
    }

    status := cpu.Memory.Load(StackBase + 0x00fd)
    if status & FlagBreak != 0 {
        test.Fatalf("hardware interrupt should push the break flag as 0, was 0x%02x", status)
    }
}

func TestInterruptMasked(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xea, // nop
    }, 0x0800)

    cpu.SetInterruptDisableFlag(true)
    cpu.Interrupt()

    if cpu.PC != 0x0800 {
        test.Fatalf("masked interrupt should not move the PC, was 0x%04x", cpu.PC)
    }
}

func TestNMIIgnoresMask(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xea, // nop
    }, 0x0800)

    cpu.Memory.StoreDirect(NMIVector, 0x00)
    cpu.Memory.StoreDirect(NMIVector + 1, 0xa0)

    cpu.SetInterruptDisableFlag(true)
    cpu.NMI()

    if cpu.PC != 0xa000 {
        test.Fatalf("PC expected to be 0xa000 but was 0x%04x", cpu.PC)
    }
}

func TestUnusedFlagAlwaysSet(test *testing.T){
    cpu := StartupState()
    cpu.SetCarryFlag(true)
    cpu.SetCarryFlag(false)
    cpu.SetOverflowFlag(false)
    cpu.SetNegativeFlag(false)

    if cpu.Status & FlagUnused == 0 {
        test.Fatalf("unused status bit should stay set, status was 0x%02x", cpu.Status)
    }
}

func TestStackPointerWrapAround(test *testing.T){
    cpu := StartupState()
    cpu.SP = 0x00
    cpu.PushStack(0x12)

    if cpu.SP != 0xff {
        test.Fatalf("SP expected to wrap to 0xff but was 0x%02x", cpu.SP)
    }
    if cpu.Memory.Load(StackBase) != 0x12 {
        test.Fatalf("pushed value expected at 0x0100 but found 0x%02x", cpu.Memory.Load(StackBase))
    }
}

type recordedOutput struct {
    chars []uint16
}

func (recorded *recordedOutput) WriteChar(code uint16){
    recorded.chars = append(recorded.chars, code)
}

func TestOutOpcode(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xa9, 0x41, // lda #$41
        0xf2,       // out
        0xa0, 0x42, // ldy #$42
        0xa9, 0x01, // lda #$01
        0xfa,       // ouy
        0x02,       // hlt
    }, 0x0800)

    recorded := &recordedOutput{}
    cpu.Text = recorded

    runTestCPU(test, cpu, 20)

    if len(recorded.chars) != 2 {
        test.Fatalf("expected 2 output characters but got %v", len(recorded.chars))
    }
    if recorded.chars[0] != 0x41 {
        test.Fatalf("expected first character 0x41 but got 0x%x", recorded.chars[0])
    }
    if recorded.chars[1] != 0x0142 {
        test.Fatalf("expected second character 0x0142 but got 0x%x", recorded.chars[1])
    }
}

type scriptedInput struct {
    line []byte
    prompts int
}

func (scripted *scriptedInput) ReadLine() []byte {
    scripted.prompts += 1
    return scripted.line
}

/* IN drains one buffered line byte by byte, with a NUL sentinel at the
 * end, prompting the host only when the buffer is empty
 */
func TestInOpcode(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xf3,             // in
        0x8d, 0x00, 0x03, // sta $0300
        0xf3,             // in
        0x8d, 0x01, 0x03, // sta $0301
        0xf3,             // in
        0x8d, 0x02, 0x03, // sta $0302
        0x02,             // hlt
    }, 0x0800)

    scripted := &scriptedInput{line: []byte("no")}
    cpu.Input = scripted

    runTestCPU(test, cpu, 50)

    if scripted.prompts != 1 {
        test.Fatalf("expected one prompt but got %v", scripted.prompts)
    }
    if cpu.Memory.Load(0x300) != 'n' || cpu.Memory.Load(0x301) != 'o' || cpu.Memory.Load(0x302) != 0 {
        test.Fatalf("expected buffered input n, o, NUL but got 0x%x 0x%x 0x%x",
            cpu.Memory.Load(0x300), cpu.Memory.Load(0x301), cpu.Memory.Load(0x302))
    }
}

func TestWaiSuspends(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xf7,       // wai
        0xa9, 0x05, // lda #$05
        0x02,       // hlt
    }, 0x0800)

    table := MakeInstructionTable()

    running, err := cpu.Step(table)
    if err != nil || !running {
        test.Fatalf("wai should keep the program alive: %v", err)
    }
    if !cpu.Waiting {
        test.Fatalf("expected the cpu to be waiting")
    }

    /* steps while waiting do nothing */
    running, err = cpu.Step(table)
    if err != nil || !running {
        test.Fatalf("waiting step failed: %v", err)
    }
    if cpu.A != 0 {
        test.Fatalf("no instruction should have run while waiting")
    }

    /* host resume continues at the next instruction */
    cpu.Waiting = false
    runTestCPU(test, cpu, 10)

    if cpu.A != 0x05 {
        test.Fatalf("A register expected to be 0x05 but was 0x%x", cpu.A)
    }
}

func TestUnknownOpcodeStops(test *testing.T){
    cpu := makeTestCPU([]byte{
        0x03, // not an opcode
    }, 0x0800)

    table := MakeInstructionTable()
    _, err := cpu.Step(table)
    if err == nil {
        test.Fatalf("expected an error for an unknown opcode")
    }
}

func TestUndefinedMemoryEndsProgram(test *testing.T){
    cpu := StartupState()
    cpu.PC = 0x0800

    table := MakeInstructionTable()
    running, err := cpu.Step(table)
    if err != nil {
        test.Fatalf("running into undefined memory should stop quietly: %v", err)
    }
    if running {
        test.Fatalf("expected the program to be over")
    }
}

func TestRandomRegisterRefreshes(test *testing.T){
    cpu := makeTestCPU([]byte{
        0xea, // nop
        0x02, // hlt
    }, 0x0800)

    runTestCPU(test, cpu, 10)

    if !cpu.Memory.IsDefined(RandomRegister) {
        test.Fatalf("expected the random register to be written")
    }
}

func TestResetUsesVector(test *testing.T){
    cpu := StartupState()
    cpu.Memory.StoreDirect(ResetVector, 0x00)
    cpu.Memory.StoreDirect(ResetVector + 1, 0x80)
    cpu.A = 0x55
    cpu.Reset()

    if cpu.PC != 0x8000 {
        test.Fatalf("PC expected to be 0x8000 but was 0x%04x", cpu.PC)
    }
    if cpu.A != 0 || cpu.X != 0 || cpu.Y != 0 {
        test.Fatalf("registers expected to clear on reset")
    }
    if cpu.SP != 0xff {
        test.Fatalf("SP expected to be 0xff but was 0x%02x", cpu.SP)
    }
    if cpu.Status != FlagUnused | FlagInterruptDisable {
        test.Fatalf("status expected to be 0x24 but was 0x%02x", cpu.Status)
    }
}

func TestResetWithoutVector(test *testing.T){
    cpu := StartupState()
    cpu.Reset()

    if cpu.PC != DefaultStart {
        test.Fatalf("PC expected to be 0x%04x but was 0x%04x", DefaultStart, cpu.PC)
    }
}

func BenchmarkStepLoop(benchmark *testing.B){
    cpu := makeTestCPU([]byte{
        0xa2, 0x02,       // ldx #$02
        0x8a,             // txa
        0x85, 0x10,       // sta $10
        0xe8,             // inx
        0x4c, 0x00, 0x08, // jmp $0800
    }, 0x0800)

    table := MakeInstructionTable()

    benchmark.ResetTimer()
    for i := 0; i < benchmark.N; i++ {
        _, err := cpu.Step(table)
        if err != nil {
            benchmark.Fatalf("could not run cpu: %v", err)
        }
    }
}
