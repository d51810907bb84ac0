package lib

import (
    "fmt"
    "math/rand"
)

/* opcode references
 * https://www.masswerk.at/6502/6502_instruction_set.html
 * http://www.6502.org/tutorials/6502opcodes.html
 * http://www.6502.org/tutorials/decimal_mode.html
 */

type AddressMode int

const (
    ModeNone AddressMode = iota
    ModeSingle
    ModeImmediate
    ModeZeroPage
    ModeZeroPageX
    ModeZeroPageY
    ModeAbsolute
    ModeAbsoluteX
    ModeAbsoluteY
    ModeIndirect
    ModeIndirectX
    ModeIndirectY
    ModeRelative
)

/* number of operand bytes that follow the opcode */
func (mode AddressMode) OperandSize() int {
    switch mode {
        case ModeSingle:
            return 0
        case ModeAbsolute, ModeAbsoluteX, ModeAbsoluteY, ModeIndirect:
            return 2
        default:
            return 1
    }
}

const (
    Instruction_BRK byte =            0x00
    Instruction_ORA_indirect_x =      0x01
    Instruction_HLT =                 0x02
    Instruction_ORA_zero =            0x05
    Instruction_ASL_zero =            0x06
    Instruction_PHP =                 0x08
    Instruction_ORA_immediate =       0x09
    Instruction_ASL_accumulator =     0x0a
    Instruction_ORA_absolute =        0x0d
    Instruction_ASL_absolute =        0x0e
    Instruction_BPL =                 0x10
    Instruction_ORA_indirect_y =      0x11
    Instruction_ORA_zero_x =          0x15
    Instruction_ASL_zero_x =          0x16
    Instruction_CLC =                 0x18
    Instruction_ORA_absolute_y =      0x19
    Instruction_ORA_absolute_x =      0x1d
    Instruction_ASL_absolute_x =      0x1e
    Instruction_JSR =                 0x20
    Instruction_AND_indirect_x =      0x21
    Instruction_BIT_zero =            0x24
    Instruction_AND_zero =            0x25
    Instruction_ROL_zero =            0x26
    Instruction_PLP =                 0x28
    Instruction_AND_immediate =       0x29
    Instruction_ROL_accumulator =     0x2a
    Instruction_BIT_absolute =        0x2c
    Instruction_AND_absolute =        0x2d
    Instruction_ROL_absolute =        0x2e
    Instruction_BMI =                 0x30
    Instruction_AND_indirect_y =      0x31
    Instruction_AND_zero_x =          0x35
    Instruction_ROL_zero_x =          0x36
    Instruction_SEC =                 0x38
    Instruction_AND_absolute_y =      0x39
    Instruction_AND_absolute_x =      0x3d
    Instruction_ROL_absolute_x =      0x3e
    Instruction_RTI =                 0x40
    Instruction_EOR_indirect_x =      0x41
    Instruction_EOR_zero =            0x45
    Instruction_LSR_zero =            0x46
    Instruction_PHA =                 0x48
    Instruction_EOR_immediate =       0x49
    Instruction_LSR_accumulator =     0x4a
    Instruction_JMP_absolute =        0x4c
    Instruction_EOR_absolute =        0x4d
    Instruction_LSR_absolute =        0x4e
    Instruction_BVC =                 0x50
    Instruction_EOR_indirect_y =      0x51
    Instruction_EOR_zero_x =          0x55
    Instruction_LSR_zero_x =          0x56
    Instruction_CLI =                 0x58
    Instruction_EOR_absolute_y =      0x59
    Instruction_EOR_absolute_x =      0x5d
    Instruction_LSR_absolute_x =      0x5e
    Instruction_RTS =                 0x60
    Instruction_ADC_indirect_x =      0x61
    Instruction_ADC_zero =            0x65
    Instruction_ROR_zero =            0x66
    Instruction_PLA =                 0x68
    Instruction_ADC_immediate =       0x69
    Instruction_ROR_accumulator =     0x6a
    Instruction_JMP_indirect =        0x6c
    Instruction_ADC_absolute =        0x6d
    Instruction_ROR_absolute =        0x6e
    Instruction_BVS =                 0x70
    Instruction_ADC_indirect_y =      0x71
    Instruction_ADC_zero_x =          0x75
    Instruction_ROR_zero_x =          0x76
    Instruction_SEI =                 0x78
    Instruction_ADC_absolute_y =      0x79
    Instruction_ADC_absolute_x =      0x7d
    Instruction_ROR_absolute_x =      0x7e
    Instruction_STA_indirect_x =      0x81
    Instruction_STY_zero =            0x84
    Instruction_STA_zero =            0x85
    Instruction_STX_zero =            0x86
    Instruction_DEY =                 0x88
    Instruction_TXA =                 0x8a
    Instruction_STY_absolute =        0x8c
    Instruction_STA_absolute =        0x8d
    Instruction_STX_absolute =        0x8e
    Instruction_BCC =                 0x90
    Instruction_STA_indirect_y =      0x91
    Instruction_STY_zero_x =          0x94
    Instruction_STA_zero_x =          0x95
    Instruction_STX_zero_y =          0x96
    Instruction_TYA =                 0x98
    Instruction_STA_absolute_y =      0x99
    Instruction_TXS =                 0x9a
    Instruction_STA_absolute_x =      0x9d
    Instruction_LDY_immediate =       0xa0
    Instruction_LDA_indirect_x =      0xa1
    Instruction_LDX_immediate =       0xa2
    Instruction_LDY_zero =            0xa4
    Instruction_LDA_zero =            0xa5
    Instruction_LDX_zero =            0xa6
    Instruction_TAY =                 0xa8
    Instruction_LDA_immediate =       0xa9
    Instruction_TAX =                 0xaa
    Instruction_LDY_absolute =        0xac
    Instruction_LDA_absolute =        0xad
    Instruction_LDX_absolute =        0xae
    Instruction_BCS =                 0xb0
    Instruction_LDA_indirect_y =      0xb1
    Instruction_LDY_zero_x =          0xb4
    Instruction_LDA_zero_x =          0xb5
    Instruction_LDX_zero_y =          0xb6
    Instruction_CLV =                 0xb8
    Instruction_LDA_absolute_y =      0xb9
    Instruction_TSX =                 0xba
    Instruction_LDY_absolute_x =      0xbc
    Instruction_LDA_absolute_x =      0xbd
    Instruction_LDX_absolute_y =      0xbe
    Instruction_CPY_immediate =       0xc0
    Instruction_CMP_indirect_x =      0xc1
    Instruction_CPY_zero =            0xc4
    Instruction_CMP_zero =            0xc5
    Instruction_DEC_zero =            0xc6
    Instruction_INY =                 0xc8
    Instruction_CMP_immediate =       0xc9
    Instruction_DEX =                 0xca
    Instruction_CPY_absolute =        0xcc
    Instruction_CMP_absolute =        0xcd
    Instruction_DEC_absolute =        0xce
    Instruction_BNE =                 0xd0
    Instruction_CMP_indirect_y =      0xd1
    Instruction_CMP_zero_x =          0xd5
    Instruction_DEC_zero_x =          0xd6
    Instruction_CLD =                 0xd8
    Instruction_CMP_absolute_y =      0xd9
    Instruction_CMP_absolute_x =      0xdd
    Instruction_DEC_absolute_x =      0xde
    Instruction_CPX_immediate =       0xe0
    Instruction_SBC_indirect_x =      0xe1
    Instruction_CPX_zero =            0xe4
    Instruction_SBC_zero =            0xe5
    Instruction_INC_zero =            0xe6
    Instruction_INX =                 0xe8
    Instruction_SBC_immediate =       0xe9
    Instruction_NOP =                 0xea
    Instruction_CPX_absolute =        0xec
    Instruction_SBC_absolute =        0xed
    Instruction_INC_absolute =        0xee
    Instruction_BEQ =                 0xf0
    Instruction_SBC_indirect_y =      0xf1
    Instruction_OUT =                 0xf2
    Instruction_IN =                  0xf3
    Instruction_SBC_zero_x =          0xf5
    Instruction_INC_zero_x =          0xf6
    Instruction_WAI =                 0xf7
    Instruction_SED =                 0xf8
    Instruction_SBC_absolute_y =      0xf9
    Instruction_OUY =                 0xfa
    Instruction_SBC_absolute_x =      0xfd
    Instruction_INC_absolute_x =      0xfe
)

type InstructionDescription struct {
    Name string
    Mode AddressMode
}

type InstructionTable map[byte]InstructionDescription

func MakeInstructionTable() InstructionTable {
    table := make(InstructionTable)

    single := func(opcode byte, name string){
        table[opcode] = InstructionDescription{Name: name, Mode: ModeSingle}
    }
    entry := func(opcode byte, name string, mode AddressMode){
        table[opcode] = InstructionDescription{Name: name, Mode: mode}
    }

    entry(Instruction_ADC_immediate, "adc", ModeImmediate)
    entry(Instruction_ADC_zero, "adc", ModeZeroPage)
    entry(Instruction_ADC_zero_x, "adc", ModeZeroPageX)
    entry(Instruction_ADC_absolute, "adc", ModeAbsolute)
    entry(Instruction_ADC_absolute_x, "adc", ModeAbsoluteX)
    entry(Instruction_ADC_absolute_y, "adc", ModeAbsoluteY)
    entry(Instruction_ADC_indirect_x, "adc", ModeIndirectX)
    entry(Instruction_ADC_indirect_y, "adc", ModeIndirectY)

    entry(Instruction_AND_immediate, "and", ModeImmediate)
    entry(Instruction_AND_zero, "and", ModeZeroPage)
    entry(Instruction_AND_zero_x, "and", ModeZeroPageX)
    entry(Instruction_AND_absolute, "and", ModeAbsolute)
    entry(Instruction_AND_absolute_x, "and", ModeAbsoluteX)
    entry(Instruction_AND_absolute_y, "and", ModeAbsoluteY)
    entry(Instruction_AND_indirect_x, "and", ModeIndirectX)
    entry(Instruction_AND_indirect_y, "and", ModeIndirectY)

    single(Instruction_ASL_accumulator, "asl")
    entry(Instruction_ASL_zero, "asl", ModeZeroPage)
    entry(Instruction_ASL_zero_x, "asl", ModeZeroPageX)
    entry(Instruction_ASL_absolute, "asl", ModeAbsolute)
    entry(Instruction_ASL_absolute_x, "asl", ModeAbsoluteX)

    entry(Instruction_BCC, "bcc", ModeRelative)
    entry(Instruction_BCS, "bcs", ModeRelative)
    entry(Instruction_BEQ, "beq", ModeRelative)
    entry(Instruction_BMI, "bmi", ModeRelative)
    entry(Instruction_BNE, "bne", ModeRelative)
    entry(Instruction_BPL, "bpl", ModeRelative)
    entry(Instruction_BVC, "bvc", ModeRelative)
    entry(Instruction_BVS, "bvs", ModeRelative)

    entry(Instruction_BIT_zero, "bit", ModeZeroPage)
    entry(Instruction_BIT_absolute, "bit", ModeAbsolute)

    single(Instruction_BRK, "brk")

    single(Instruction_CLC, "clc")
    single(Instruction_CLD, "cld")
    single(Instruction_CLI, "cli")
    single(Instruction_CLV, "clv")

    entry(Instruction_CMP_immediate, "cmp", ModeImmediate)
    entry(Instruction_CMP_zero, "cmp", ModeZeroPage)
    entry(Instruction_CMP_zero_x, "cmp", ModeZeroPageX)
    entry(Instruction_CMP_absolute, "cmp", ModeAbsolute)
    entry(Instruction_CMP_absolute_x, "cmp", ModeAbsoluteX)
    entry(Instruction_CMP_absolute_y, "cmp", ModeAbsoluteY)
    entry(Instruction_CMP_indirect_x, "cmp", ModeIndirectX)
    entry(Instruction_CMP_indirect_y, "cmp", ModeIndirectY)

    entry(Instruction_CPX_immediate, "cpx", ModeImmediate)
    entry(Instruction_CPX_zero, "cpx", ModeZeroPage)
    entry(Instruction_CPX_absolute, "cpx", ModeAbsolute)

    entry(Instruction_CPY_immediate, "cpy", ModeImmediate)
    entry(Instruction_CPY_zero, "cpy", ModeZeroPage)
    entry(Instruction_CPY_absolute, "cpy", ModeAbsolute)

    entry(Instruction_DEC_zero, "dec", ModeZeroPage)
    entry(Instruction_DEC_zero_x, "dec", ModeZeroPageX)
    entry(Instruction_DEC_absolute, "dec", ModeAbsolute)
    entry(Instruction_DEC_absolute_x, "dec", ModeAbsoluteX)

    single(Instruction_DEX, "dex")
    single(Instruction_DEY, "dey")

    entry(Instruction_EOR_immediate, "eor", ModeImmediate)
    entry(Instruction_EOR_zero, "eor", ModeZeroPage)
    entry(Instruction_EOR_zero_x, "eor", ModeZeroPageX)
    entry(Instruction_EOR_absolute, "eor", ModeAbsolute)
    entry(Instruction_EOR_absolute_x, "eor", ModeAbsoluteX)
    entry(Instruction_EOR_absolute_y, "eor", ModeAbsoluteY)
    entry(Instruction_EOR_indirect_x, "eor", ModeIndirectX)
    entry(Instruction_EOR_indirect_y, "eor", ModeIndirectY)

    entry(Instruction_INC_zero, "inc", ModeZeroPage)
    entry(Instruction_INC_zero_x, "inc", ModeZeroPageX)
    entry(Instruction_INC_absolute, "inc", ModeAbsolute)
    entry(Instruction_INC_absolute_x, "inc", ModeAbsoluteX)

    single(Instruction_INX, "inx")
    single(Instruction_INY, "iny")

    entry(Instruction_JMP_absolute, "jmp", ModeAbsolute)
    entry(Instruction_JMP_indirect, "jmp", ModeIndirect)
    entry(Instruction_JSR, "jsr", ModeAbsolute)

    entry(Instruction_LDA_immediate, "lda", ModeImmediate)
    entry(Instruction_LDA_zero, "lda", ModeZeroPage)
    entry(Instruction_LDA_zero_x, "lda", ModeZeroPageX)
    entry(Instruction_LDA_absolute, "lda", ModeAbsolute)
    entry(Instruction_LDA_absolute_x, "lda", ModeAbsoluteX)
    entry(Instruction_LDA_absolute_y, "lda", ModeAbsoluteY)
    entry(Instruction_LDA_indirect_x, "lda", ModeIndirectX)
    entry(Instruction_LDA_indirect_y, "lda", ModeIndirectY)

    entry(Instruction_LDX_immediate, "ldx", ModeImmediate)
    entry(Instruction_LDX_zero, "ldx", ModeZeroPage)
    entry(Instruction_LDX_zero_y, "ldx", ModeZeroPageY)
    entry(Instruction_LDX_absolute, "ldx", ModeAbsolute)
    entry(Instruction_LDX_absolute_y, "ldx", ModeAbsoluteY)

    entry(Instruction_LDY_immediate, "ldy", ModeImmediate)
    entry(Instruction_LDY_zero, "ldy", ModeZeroPage)
    entry(Instruction_LDY_zero_x, "ldy", ModeZeroPageX)
    entry(Instruction_LDY_absolute, "ldy", ModeAbsolute)
    entry(Instruction_LDY_absolute_x, "ldy", ModeAbsoluteX)

    single(Instruction_LSR_accumulator, "lsr")
    entry(Instruction_LSR_zero, "lsr", ModeZeroPage)
    entry(Instruction_LSR_zero_x, "lsr", ModeZeroPageX)
    entry(Instruction_LSR_absolute, "lsr", ModeAbsolute)
    entry(Instruction_LSR_absolute_x, "lsr", ModeAbsoluteX)

    single(Instruction_NOP, "nop")

    entry(Instruction_ORA_immediate, "ora", ModeImmediate)
    entry(Instruction_ORA_zero, "ora", ModeZeroPage)
    entry(Instruction_ORA_zero_x, "ora", ModeZeroPageX)
    entry(Instruction_ORA_absolute, "ora", ModeAbsolute)
    entry(Instruction_ORA_absolute_x, "ora", ModeAbsoluteX)
    entry(Instruction_ORA_absolute_y, "ora", ModeAbsoluteY)
    entry(Instruction_ORA_indirect_x, "ora", ModeIndirectX)
    entry(Instruction_ORA_indirect_y, "ora", ModeIndirectY)

    single(Instruction_PHA, "pha")
    single(Instruction_PHP, "php")
    single(Instruction_PLA, "pla")
    single(Instruction_PLP, "plp")

    single(Instruction_ROL_accumulator, "rol")
    entry(Instruction_ROL_zero, "rol", ModeZeroPage)
    entry(Instruction_ROL_zero_x, "rol", ModeZeroPageX)
    entry(Instruction_ROL_absolute, "rol", ModeAbsolute)
    entry(Instruction_ROL_absolute_x, "rol", ModeAbsoluteX)

    single(Instruction_ROR_accumulator, "ror")
    entry(Instruction_ROR_zero, "ror", ModeZeroPage)
    entry(Instruction_ROR_zero_x, "ror", ModeZeroPageX)
    entry(Instruction_ROR_absolute, "ror", ModeAbsolute)
    entry(Instruction_ROR_absolute_x, "ror", ModeAbsoluteX)

    single(Instruction_RTI, "rti")
    single(Instruction_RTS, "rts")

    entry(Instruction_SBC_immediate, "sbc", ModeImmediate)
    entry(Instruction_SBC_zero, "sbc", ModeZeroPage)
    entry(Instruction_SBC_zero_x, "sbc", ModeZeroPageX)
    entry(Instruction_SBC_absolute, "sbc", ModeAbsolute)
    entry(Instruction_SBC_absolute_x, "sbc", ModeAbsoluteX)
    entry(Instruction_SBC_absolute_y, "sbc", ModeAbsoluteY)
    entry(Instruction_SBC_indirect_x, "sbc", ModeIndirectX)
    entry(Instruction_SBC_indirect_y, "sbc", ModeIndirectY)

    single(Instruction_SEC, "sec")
    single(Instruction_SED, "sed")
    single(Instruction_SEI, "sei")

    entry(Instruction_STA_zero, "sta", ModeZeroPage)
    entry(Instruction_STA_zero_x, "sta", ModeZeroPageX)
    entry(Instruction_STA_absolute, "sta", ModeAbsolute)
    entry(Instruction_STA_absolute_x, "sta", ModeAbsoluteX)
    entry(Instruction_STA_absolute_y, "sta", ModeAbsoluteY)
    entry(Instruction_STA_indirect_x, "sta", ModeIndirectX)
    entry(Instruction_STA_indirect_y, "sta", ModeIndirectY)

    entry(Instruction_STX_zero, "stx", ModeZeroPage)
    entry(Instruction_STX_zero_y, "stx", ModeZeroPageY)
    entry(Instruction_STX_absolute, "stx", ModeAbsolute)

    entry(Instruction_STY_zero, "sty", ModeZeroPage)
    entry(Instruction_STY_zero_x, "sty", ModeZeroPageX)
    entry(Instruction_STY_absolute, "sty", ModeAbsolute)

    single(Instruction_TAX, "tax")
    single(Instruction_TAY, "tay")
    single(Instruction_TSX, "tsx")
    single(Instruction_TXA, "txa")
    single(Instruction_TXS, "txs")
    single(Instruction_TYA, "tya")

    /* extensions */
    single(Instruction_HLT, "hlt")
    single(Instruction_OUT, "out")
    single(Instruction_OUY, "ouy")
    single(Instruction_IN, "in")
    single(Instruction_WAI, "wai")

    return table
}

type Instruction struct {
    Name string
    Kind byte
    Mode AddressMode
    Operands []byte
}

func (instruction *Instruction) Length() uint16 {
    return 1 + uint16(len(instruction.Operands))
}

func (instruction *Instruction) OperandByte() (byte, error) {
    if len(instruction.Operands) != 1 {
        return 0, fmt.Errorf("dont have one operand for %v, have %v", instruction.Name, len(instruction.Operands))
    }
    return instruction.Operands[0], nil
}

func (instruction *Instruction) OperandWord() (uint16, error) {
    if len(instruction.Operands) != 2 {
        return 0, fmt.Errorf("dont have two operands for %v, have %v", instruction.Name, len(instruction.Operands))
    }
    high := instruction.Operands[1]
    low := instruction.Operands[0]
    return (uint16(high) << 8) | uint16(low), nil
}

func (instruction *Instruction) String() string {
    switch instruction.Mode {
        case ModeImmediate:
            return fmt.Sprintf("%v #$%02x", instruction.Name, instruction.Operands[0])
        case ModeZeroPage:
            return fmt.Sprintf("%v $%02x", instruction.Name, instruction.Operands[0])
        case ModeZeroPageX:
            return fmt.Sprintf("%v $%02x,x", instruction.Name, instruction.Operands[0])
        case ModeZeroPageY:
            return fmt.Sprintf("%v $%02x,y", instruction.Name, instruction.Operands[0])
        case ModeAbsolute:
            return fmt.Sprintf("%v $%02x%02x", instruction.Name, instruction.Operands[1], instruction.Operands[0])
        case ModeAbsoluteX:
            return fmt.Sprintf("%v $%02x%02x,x", instruction.Name, instruction.Operands[1], instruction.Operands[0])
        case ModeAbsoluteY:
            return fmt.Sprintf("%v $%02x%02x,y", instruction.Name, instruction.Operands[1], instruction.Operands[0])
        case ModeIndirect:
            return fmt.Sprintf("%v ($%02x%02x)", instruction.Name, instruction.Operands[1], instruction.Operands[0])
        case ModeIndirectX:
            return fmt.Sprintf("%v ($%02x,x)", instruction.Name, instruction.Operands[0])
        case ModeIndirectY:
            return fmt.Sprintf("%v ($%02x),y", instruction.Name, instruction.Operands[0])
        case ModeRelative:
            return fmt.Sprintf("%v $%02x", instruction.Name, instruction.Operands[0])
    }
    return instruction.Name
}

const (
    FlagCarry byte = 1 << 0
    FlagZero byte = 1 << 1
    FlagInterruptDisable byte = 1 << 2
    FlagDecimal byte = 1 << 3
    FlagBreak byte = 1 << 4
    FlagUnused byte = 1 << 5
    FlagOverflow byte = 1 << 6
    FlagNegative byte = 1 << 7
)

/* the state a 6502 program can see: three registers, the stack pointer,
 * the program counter and the status word
 */
type CPUState struct {
    A byte
    X byte
    Y byte
    SP byte
    PC uint16
    Status byte

    Memory *Memory

    /* true after WAI until the next interrupt or host resume */
    Waiting bool

    /* buffered characters for the IN opcode. a NUL byte marks the end
     * of each host supplied line.
     */
    InputBuffer []byte

    Text TextOutput
    Input InputSource

    Debug uint
}

func StartupState() *CPUState {
    return &CPUState{
        SP: 0xff,
        Status: FlagUnused | FlagInterruptDisable,
        Memory: NewMemory(),
        Text: &NullText{},
        Input: &NullInput{},
    }
}

func (cpu *CPUState) String() string {
    return fmt.Sprintf("A:%02X X:%02X Y:%02X SP:%02X P:%02X PC:%04X", cpu.A, cpu.X, cpu.Y, cpu.SP, cpu.Status, cpu.PC)
}

/* the unused bit reads as 1 no matter what was last done to the flags */
func (cpu *CPUState) setBit(bit byte, set bool){
    if set {
        cpu.Status = cpu.Status | bit
    } else {
        cpu.Status = cpu.Status & (^bit)
    }
    cpu.Status = cpu.Status | FlagUnused
}

func (cpu *CPUState) getBit(bit byte) bool {
    return (cpu.Status & bit) == bit
}

func (cpu *CPUState) GetCarryFlag() bool {
    return cpu.getBit(FlagCarry)
}

func (cpu *CPUState) SetCarryFlag(set bool){
    cpu.setBit(FlagCarry, set)
}

func (cpu *CPUState) GetZeroFlag() bool {
    return cpu.getBit(FlagZero)
}

func (cpu *CPUState) SetZeroFlag(set bool){
    cpu.setBit(FlagZero, set)
}

func (cpu *CPUState) GetInterruptDisableFlag() bool {
    return cpu.getBit(FlagInterruptDisable)
}

func (cpu *CPUState) SetInterruptDisableFlag(set bool){
    cpu.setBit(FlagInterruptDisable, set)
}

func (cpu *CPUState) GetDecimalFlag() bool {
    return cpu.getBit(FlagDecimal)
}

func (cpu *CPUState) SetDecimalFlag(set bool){
    cpu.setBit(FlagDecimal, set)
}

func (cpu *CPUState) GetOverflowFlag() bool {
    return cpu.getBit(FlagOverflow)
}

func (cpu *CPUState) SetOverflowFlag(set bool){
    cpu.setBit(FlagOverflow, set)
}

func (cpu *CPUState) GetNegativeFlag() bool {
    return cpu.getBit(FlagNegative)
}

func (cpu *CPUState) SetNegativeFlag(set bool){
    cpu.setBit(FlagNegative, set)
}

/* push decrements, pull increments. wrap around at both ends is silent. */
func (cpu *CPUState) PushStack(value byte){
    cpu.Memory.Store(StackBase + uint16(cpu.SP), value)
    cpu.SP -= 1
}

func (cpu *CPUState) PopStack() byte {
    cpu.SP += 1
    return cpu.Memory.Load(StackBase + uint16(cpu.SP))
}

/* clear the registers and jump through the reset vector, or to the default
 * start address when no vector was assembled
 */
func (cpu *CPUState) Reset() {
    cpu.A = 0
    cpu.X = 0
    cpu.Y = 0
    cpu.SP = 0xff
    cpu.Status = FlagUnused | FlagInterruptDisable
    cpu.Waiting = false
    cpu.InputBuffer = nil

    vector := cpu.Memory.LoadWord(ResetVector)
    if vector != 0 {
        cpu.PC = vector
    } else {
        cpu.PC = DefaultStart
    }

    cpu.Memory.ClearInput()
}

/* maskable hardware interrupt. the break flag is pushed as 0. */
func (cpu *CPUState) Interrupt() {
    if cpu.GetInterruptDisableFlag() {
        return
    }
    cpu.Waiting = false
    cpu.PushStack(byte(cpu.PC >> 8))
    cpu.PushStack(byte(cpu.PC))
    cpu.PushStack((cpu.Status &^ FlagBreak) | FlagUnused)
    cpu.SetInterruptDisableFlag(true)
    cpu.PC = cpu.Memory.LoadWord(IRQVector)
}

func (cpu *CPUState) NMI() {
    cpu.Waiting = false
    cpu.PushStack(byte(cpu.PC >> 8))
    cpu.PushStack(byte(cpu.PC))
    cpu.PushStack((cpu.Status &^ FlagBreak) | FlagUnused)
    cpu.SetInterruptDisableFlag(true)
    cpu.PC = cpu.Memory.LoadWord(NMIVector)
}

func (cpu *CPUState) Fetch(table InstructionTable) (Instruction, error) {
    first := cpu.Memory.Load(cpu.PC)

    description, ok := table[first]
    if !ok {
        return Instruction{}, fmt.Errorf("unknown opcode 0x%02x at address 0x%04x", first, cpu.PC)
    }

    count := description.Mode.OperandSize()
    operands := make([]byte, count)
    for i := 0; i < count; i++ {
        operands[i] = cpu.Memory.Load(cpu.PC + uint16(i + 1))
    }

    return Instruction{
        Name: description.Name,
        Kind: first,
        Mode: description.Mode,
        Operands: operands,
    }, nil
}

/* one fetch/decode/execute step. returns false when the program is done,
 * either from HLT or from running off the end of the assembled code.
 */
func (cpu *CPUState) Step(table InstructionTable) (bool, error) {
    cpu.Memory.StoreDirect(RandomRegister, byte(rand.Intn(256)))

    if cpu.Waiting {
        return true, nil
    }

    if !cpu.Memory.IsDefined(cpu.PC) {
        return false, nil
    }

    instruction, err := cpu.Fetch(table)
    if err != nil {
        return false, err
    }

    if cpu.Debug > 0 {
        fmt.Printf("%04x: %v %v\n", cpu.PC, instruction.String(), cpu.String())
    }

    return cpu.Execute(instruction)
}

/* effective address for the instruction's addressing mode */
func (cpu *CPUState) operandAddress(instruction Instruction) (uint16, error) {
    switch instruction.Mode {
        case ModeZeroPage:
            value, err := instruction.OperandByte()
            return uint16(value), err
        case ModeZeroPageX:
            value, err := instruction.OperandByte()
            return uint16(value + cpu.X), err
        case ModeZeroPageY:
            value, err := instruction.OperandByte()
            return uint16(value + cpu.Y), err
        case ModeAbsolute:
            return instruction.OperandWord()
        case ModeAbsoluteX:
            address, err := instruction.OperandWord()
            return address + uint16(cpu.X), err
        case ModeAbsoluteY:
            address, err := instruction.OperandWord()
            return address + uint16(cpu.Y), err
        case ModeIndirect:
            pointer, err := instruction.OperandWord()
            if err != nil {
                return 0, err
            }
            return cpu.Memory.LoadWord(pointer), nil
        case ModeIndirectX:
            value, err := instruction.OperandByte()
            if err != nil {
                return 0, err
            }
            return cpu.ComputeIndirectX(value), nil
        case ModeIndirectY:
            value, err := instruction.OperandByte()
            if err != nil {
                return 0, err
            }
            return cpu.ComputeIndirectY(value), nil
    }
    return 0, fmt.Errorf("no address for mode %v of %v", instruction.Mode, instruction.Name)
}

/* immediate reads the operand itself, everything else loads from the
 * effective address
 */
func (cpu *CPUState) operandValue(instruction Instruction) (byte, error) {
    if instruction.Mode == ModeImmediate {
        return instruction.OperandByte()
    }
    address, err := cpu.operandAddress(instruction)
    if err != nil {
        return 0, err
    }
    return cpu.Memory.Load(address), nil
}

func (cpu *CPUState) ComputeIndirectX(relative byte) uint16 {
    zero_address := relative + cpu.X
    /* keeping the intermediate as a byte makes zero page wrap around work */
    low := cpu.Memory.Load(uint16(zero_address))
    high := cpu.Memory.Load(uint16(zero_address + 1))
    return (uint16(high) << 8) | uint16(low)
}

func (cpu *CPUState) ComputeIndirectY(relative byte) uint16 {
    low := uint16(cpu.Memory.Load(uint16(relative)))
    high := uint16(cpu.Memory.Load(uint16(relative + 1)))
    return ((high << 8) | low) + uint16(cpu.Y)
}

func (cpu *CPUState) loadA(value byte){
    cpu.A = value
    cpu.SetNegativeFlag(int8(value) < 0)
    cpu.SetZeroFlag(value == 0)
}

func (cpu *CPUState) loadX(value byte){
    cpu.X = value
    cpu.SetNegativeFlag(int8(value) < 0)
    cpu.SetZeroFlag(value == 0)
}

func (cpu *CPUState) loadY(value byte){
    cpu.Y = value
    cpu.SetNegativeFlag(int8(value) < 0)
    cpu.SetZeroFlag(value == 0)
}

func (cpu *CPUState) doOrA(value byte){
    cpu.A = cpu.A | value
    cpu.SetNegativeFlag(int8(cpu.A) < 0)
    cpu.SetZeroFlag(cpu.A == 0)
}

func (cpu *CPUState) doAnd(value byte){
    cpu.A = cpu.A & value
    cpu.SetNegativeFlag(int8(cpu.A) < 0)
    cpu.SetZeroFlag(cpu.A == 0)
}

func (cpu *CPUState) doEorA(value byte){
    cpu.A = cpu.A ^ value
    cpu.SetNegativeFlag(int8(cpu.A) < 0)
    cpu.SetZeroFlag(cpu.A == 0)
}

func (cpu *CPUState) doBit(value byte){
    cpu.SetZeroFlag((cpu.A & value) == 0)
    cpu.SetNegativeFlag((value & (1<<7)) == (1<<7))
    cpu.SetOverflowFlag((value & (1<<6)) == (1<<6))
}

func (cpu *CPUState) doInc(value byte) byte {
    value = value + 1
    cpu.SetNegativeFlag(int8(value) < 0)
    cpu.SetZeroFlag(value == 0)
    return value
}

func (cpu *CPUState) doDec(value byte) byte {
    value = value - 1
    cpu.SetNegativeFlag(int8(value) < 0)
    cpu.SetZeroFlag(value == 0)
    return value
}

func (cpu *CPUState) doAsl(value byte) byte {
    carry := value & (1<<7)
    out := value << 1
    cpu.SetNegativeFlag(int8(out) < 0)
    cpu.SetZeroFlag(out == 0)
    cpu.SetCarryFlag(carry == (1<<7))
    return out
}

func (cpu *CPUState) doLsr(value byte) byte {
    carry := value & 1
    out := value >> 1
    cpu.SetNegativeFlag(false)
    cpu.SetZeroFlag(out == 0)
    cpu.SetCarryFlag(carry == 1)
    return out
}

func (cpu *CPUState) doRol(value byte) byte {
    var carryBit byte
    if cpu.GetCarryFlag() {
        carryBit = 1
    }

    newCarry := (value & (1<<7)) == (1<<7)
    out := (value << 1) | carryBit

    cpu.SetCarryFlag(newCarry)
    cpu.SetNegativeFlag(int8(out) < 0)
    cpu.SetZeroFlag(out == 0)
    return out
}

func (cpu *CPUState) doRor(value byte) byte {
    var carryBit byte
    if cpu.GetCarryFlag() {
        carryBit = 1
    }

    newCarry := (value & 1) == 1
    out := (value >> 1) | (carryBit << 7)
    cpu.SetCarryFlag(newCarry)
    cpu.SetNegativeFlag(int8(out) < 0)
    cpu.SetZeroFlag(out == 0)
    return out
}

func (cpu *CPUState) doAdc(value byte){
    var carryBit byte = 0
    if cpu.GetCarryFlag() {
        carryBit = 1
    }

    if cpu.GetDecimalFlag() {
        /* packed bcd: each nibble is a decimal digit. overflow is still
         * judged on the binary sum, carry on the decimal one.
         */
        low := int(cpu.A & 0xf) + int(value & 0xf) + int(carryBit)
        high := int(cpu.A >> 4) + int(value >> 4)
        if low > 9 {
            low += 6
            high += 1
        }

        binary := cpu.A + value + carryBit
        cpu.SetOverflowFlag((cpu.A ^ binary) & (value ^ binary) & 0x80 != 0)

        carry := false
        if high > 9 {
            high += 6
            carry = true
        }

        cpu.A = byte((high << 4) | (low & 0xf))
        cpu.SetCarryFlag(carry)
        cpu.SetNegativeFlag(int8(cpu.A) < 0)
        cpu.SetZeroFlag(cpu.A == 0)
        return
    }

    /* set overflow when the result would not fit into a twos-complement number
     * http://www.6502.org/tutorials/vflag.html
     */
    full := int16(int8(cpu.A)) + int16(int8(value)) + int16(carryBit)
    carry := int16(cpu.A) + int16(value) + int16(carryBit) > 0xff
    cpu.A = cpu.A + value + carryBit
    cpu.SetNegativeFlag(int8(cpu.A) < 0)
    cpu.SetOverflowFlag(full >= 128 || full <= -129)
    cpu.SetCarryFlag(carry)
    cpu.SetZeroFlag(cpu.A == 0)
}

func (cpu *CPUState) doSbc(value byte){
    var borrow byte = 1
    if cpu.GetCarryFlag() {
        borrow = 0
    }

    if cpu.GetDecimalFlag() {
        low := int(cpu.A & 0xf) - int(value & 0xf) - int(borrow)
        high := int(cpu.A >> 4) - int(value >> 4)
        if low < 0 {
            low -= 6
            high -= 1
        }

        binary := cpu.A - value - borrow
        cpu.SetOverflowFlag((cpu.A ^ binary) & (cpu.A ^ value) & 0x80 != 0)
        cpu.SetCarryFlag(int(cpu.A) - int(value) - int(borrow) >= 0)

        if high < 0 {
            high -= 6
        }

        cpu.A = byte((high << 4) | (low & 0xf))
        cpu.SetNegativeFlag(int8(cpu.A) < 0)
        cpu.SetZeroFlag(cpu.A == 0)
        return
    }

    full := int16(int8(cpu.A)) - int16(int8(value)) - int16(borrow)
    carry := int16(cpu.A) - int16(value) - int16(borrow) >= 0

    result := int8(cpu.A) - int8(value) - int8(borrow)
    cpu.A = byte(result)
    cpu.SetCarryFlag(carry)
    cpu.SetOverflowFlag(full >= 128 || full <= -129)
    cpu.SetNegativeFlag(result < 0)
    cpu.SetZeroFlag(result == 0)
}

func (cpu *CPUState) doCompare(register byte, value byte){
    result := register - value
    cpu.SetCarryFlag(register >= value)
    cpu.SetNegativeFlag(int8(result) < 0)
    cpu.SetZeroFlag(result == 0)
}

/* branch displacement is relative to the byte after the operand. the PC
 * has already moved there by the time this runs.
 */
func (cpu *CPUState) doBranch(instruction Instruction, taken bool) error {
    displacement, err := instruction.OperandByte()
    if err != nil {
        return err
    }
    if taken {
        cpu.PC = cpu.PC + uint16(int16(int8(displacement)))
    }
    return nil
}

/* modify a memory operand in place, as inc/dec/shifts do */
func (cpu *CPUState) modifyMemory(instruction Instruction, operation func(byte) byte) error {
    address, err := cpu.operandAddress(instruction)
    if err != nil {
        return err
    }
    cpu.Memory.Store(address, operation(cpu.Memory.Load(address)))
    return nil
}

func (cpu *CPUState) storeRegister(instruction Instruction, value byte) error {
    address, err := cpu.operandAddress(instruction)
    if err != nil {
        return err
    }
    cpu.Memory.Store(address, value)
    return nil
}

/* execute one decoded instruction. the PC moves past the instruction first,
 * so control flow opcodes just overwrite it. returns false to stop the run.
 */
func (cpu *CPUState) Execute(instruction Instruction) (bool, error) {
    cpu.PC += instruction.Length()

    switch instruction.Kind {
        case Instruction_LDA_immediate, Instruction_LDA_zero, Instruction_LDA_zero_x,
             Instruction_LDA_absolute, Instruction_LDA_absolute_x, Instruction_LDA_absolute_y,
             Instruction_LDA_indirect_x, Instruction_LDA_indirect_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.loadA(value)

        case Instruction_LDX_immediate, Instruction_LDX_zero, Instruction_LDX_zero_y,
             Instruction_LDX_absolute, Instruction_LDX_absolute_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.loadX(value)

        case Instruction_LDY_immediate, Instruction_LDY_zero, Instruction_LDY_zero_x,
             Instruction_LDY_absolute, Instruction_LDY_absolute_x:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.loadY(value)

        case Instruction_STA_zero, Instruction_STA_zero_x, Instruction_STA_absolute,
             Instruction_STA_absolute_x, Instruction_STA_absolute_y,
             Instruction_STA_indirect_x, Instruction_STA_indirect_y:
            err := cpu.storeRegister(instruction, cpu.A)
            if err != nil {
                return false, err
            }

        case Instruction_STX_zero, Instruction_STX_zero_y, Instruction_STX_absolute:
            err := cpu.storeRegister(instruction, cpu.X)
            if err != nil {
                return false, err
            }

        case Instruction_STY_zero, Instruction_STY_zero_x, Instruction_STY_absolute:
            err := cpu.storeRegister(instruction, cpu.Y)
            if err != nil {
                return false, err
            }

        case Instruction_ORA_immediate, Instruction_ORA_zero, Instruction_ORA_zero_x,
             Instruction_ORA_absolute, Instruction_ORA_absolute_x, Instruction_ORA_absolute_y,
             Instruction_ORA_indirect_x, Instruction_ORA_indirect_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doOrA(value)

        case Instruction_AND_immediate, Instruction_AND_zero, Instruction_AND_zero_x,
             Instruction_AND_absolute, Instruction_AND_absolute_x, Instruction_AND_absolute_y,
             Instruction_AND_indirect_x, Instruction_AND_indirect_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doAnd(value)

        case Instruction_EOR_immediate, Instruction_EOR_zero, Instruction_EOR_zero_x,
             Instruction_EOR_absolute, Instruction_EOR_absolute_x, Instruction_EOR_absolute_y,
             Instruction_EOR_indirect_x, Instruction_EOR_indirect_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doEorA(value)

        case Instruction_ADC_immediate, Instruction_ADC_zero, Instruction_ADC_zero_x,
             Instruction_ADC_absolute, Instruction_ADC_absolute_x, Instruction_ADC_absolute_y,
             Instruction_ADC_indirect_x, Instruction_ADC_indirect_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doAdc(value)

        case Instruction_SBC_immediate, Instruction_SBC_zero, Instruction_SBC_zero_x,
             Instruction_SBC_absolute, Instruction_SBC_absolute_x, Instruction_SBC_absolute_y,
             Instruction_SBC_indirect_x, Instruction_SBC_indirect_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doSbc(value)

        case Instruction_CMP_immediate, Instruction_CMP_zero, Instruction_CMP_zero_x,
             Instruction_CMP_absolute, Instruction_CMP_absolute_x, Instruction_CMP_absolute_y,
             Instruction_CMP_indirect_x, Instruction_CMP_indirect_y:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doCompare(cpu.A, value)

        case Instruction_CPX_immediate, Instruction_CPX_zero, Instruction_CPX_absolute:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doCompare(cpu.X, value)

        case Instruction_CPY_immediate, Instruction_CPY_zero, Instruction_CPY_absolute:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doCompare(cpu.Y, value)

        case Instruction_BIT_zero, Instruction_BIT_absolute:
            value, err := cpu.operandValue(instruction)
            if err != nil {
                return false, err
            }
            cpu.doBit(value)

        case Instruction_INC_zero, Instruction_INC_zero_x, Instruction_INC_absolute, Instruction_INC_absolute_x:
            err := cpu.modifyMemory(instruction, cpu.doInc)
            if err != nil {
                return false, err
            }

        case Instruction_DEC_zero, Instruction_DEC_zero_x, Instruction_DEC_absolute, Instruction_DEC_absolute_x:
            err := cpu.modifyMemory(instruction, cpu.doDec)
            if err != nil {
                return false, err
            }

        case Instruction_ASL_accumulator:
            cpu.A = cpu.doAsl(cpu.A)
        case Instruction_ASL_zero, Instruction_ASL_zero_x, Instruction_ASL_absolute, Instruction_ASL_absolute_x:
            err := cpu.modifyMemory(instruction, cpu.doAsl)
            if err != nil {
                return false, err
            }

        case Instruction_LSR_accumulator:
            cpu.A = cpu.doLsr(cpu.A)
        case Instruction_LSR_zero, Instruction_LSR_zero_x, Instruction_LSR_absolute, Instruction_LSR_absolute_x:
            err := cpu.modifyMemory(instruction, cpu.doLsr)
            if err != nil {
                return false, err
            }

        case Instruction_ROL_accumulator:
            cpu.A = cpu.doRol(cpu.A)
        case Instruction_ROL_zero, Instruction_ROL_zero_x, Instruction_ROL_absolute, Instruction_ROL_absolute_x:
            err := cpu.modifyMemory(instruction, cpu.doRol)
            if err != nil {
                return false, err
            }

        case Instruction_ROR_accumulator:
            cpu.A = cpu.doRor(cpu.A)
        case Instruction_ROR_zero, Instruction_ROR_zero_x, Instruction_ROR_absolute, Instruction_ROR_absolute_x:
            err := cpu.modifyMemory(instruction, cpu.doRor)
            if err != nil {
                return false, err
            }

        case Instruction_INX:
            cpu.loadX(cpu.X + 1)
        case Instruction_INY:
            cpu.loadY(cpu.Y + 1)
        case Instruction_DEX:
            cpu.loadX(cpu.X - 1)
        case Instruction_DEY:
            cpu.loadY(cpu.Y - 1)

        case Instruction_TAX:
            cpu.loadX(cpu.A)
        case Instruction_TAY:
            cpu.loadY(cpu.A)
        case Instruction_TXA:
            cpu.loadA(cpu.X)
        case Instruction_TYA:
            cpu.loadA(cpu.Y)
        case Instruction_TSX:
            cpu.loadX(cpu.SP)
        case Instruction_TXS:
            /* the only transfer that leaves the flags alone */
            cpu.SP = cpu.X

        case Instruction_PHA:
            cpu.PushStack(cpu.A)
        case Instruction_PLA:
            cpu.loadA(cpu.PopStack())
        case Instruction_PHP:
            /* software pushes see the break flag as 1 */
            cpu.PushStack(cpu.Status | FlagBreak | FlagUnused)
        case Instruction_PLP:
            cpu.Status = cpu.PopStack() | FlagUnused

        case Instruction_CLC:
            cpu.SetCarryFlag(false)
        case Instruction_SEC:
            cpu.SetCarryFlag(true)
        case Instruction_CLI:
            cpu.SetInterruptDisableFlag(false)
        case Instruction_SEI:
            cpu.SetInterruptDisableFlag(true)
        case Instruction_CLV:
            cpu.SetOverflowFlag(false)
        case Instruction_CLD:
            cpu.SetDecimalFlag(false)
        case Instruction_SED:
            cpu.SetDecimalFlag(true)

        case Instruction_NOP:

        case Instruction_BPL:
            return true, cpu.doBranch(instruction, !cpu.GetNegativeFlag())
        case Instruction_BMI:
            return true, cpu.doBranch(instruction, cpu.GetNegativeFlag())
        case Instruction_BVC:
            return true, cpu.doBranch(instruction, !cpu.GetOverflowFlag())
        case Instruction_BVS:
            return true, cpu.doBranch(instruction, cpu.GetOverflowFlag())
        case Instruction_BCC:
            return true, cpu.doBranch(instruction, !cpu.GetCarryFlag())
        case Instruction_BCS:
            return true, cpu.doBranch(instruction, cpu.GetCarryFlag())
        case Instruction_BNE:
            return true, cpu.doBranch(instruction, !cpu.GetZeroFlag())
        case Instruction_BEQ:
            return true, cpu.doBranch(instruction, cpu.GetZeroFlag())

        case Instruction_JMP_absolute, Instruction_JMP_indirect:
            address, err := cpu.operandAddress(instruction)
            if err != nil {
                return false, err
            }
            cpu.PC = address

        case Instruction_JSR:
            target, err := instruction.OperandWord()
            if err != nil {
                return false, err
            }
            /* push return address minus one, rts adds it back */
            ret := cpu.PC - 1
            cpu.PushStack(byte(ret >> 8))
            cpu.PushStack(byte(ret))
            cpu.PC = target

        case Instruction_RTS:
            low := cpu.PopStack()
            high := cpu.PopStack()
            cpu.PC = ((uint16(high) << 8) | uint16(low)) + 1

        case Instruction_BRK:
            /* brk skips a padding byte: the pushed address is two past the
             * opcode. the break flag is pushed as 1.
             */
            ret := cpu.PC + 1
            cpu.PushStack(byte(ret >> 8))
            cpu.PushStack(byte(ret))
            cpu.PushStack(cpu.Status | FlagBreak | FlagUnused)
            cpu.SetInterruptDisableFlag(true)
            cpu.PC = cpu.Memory.LoadWord(IRQVector)

        case Instruction_RTI:
            cpu.Status = cpu.PopStack() | FlagUnused
            low := cpu.PopStack()
            high := cpu.PopStack()
            cpu.PC = (uint16(high) << 8) | uint16(low)

        case Instruction_HLT:
            return false, nil

        case Instruction_OUT:
            cpu.Text.WriteChar(uint16(cpu.A))

        case Instruction_OUY:
            cpu.Text.WriteChar((uint16(cpu.A) << 8) | uint16(cpu.Y))

        case Instruction_IN:
            if len(cpu.InputBuffer) == 0 {
                line := cpu.Input.ReadLine()
                cpu.InputBuffer = append(append([]byte{}, line...), 0)
            }
            cpu.loadA(cpu.InputBuffer[0])
            cpu.InputBuffer = cpu.InputBuffer[1:]

        case Instruction_WAI:
            cpu.Waiting = true

        default:
            return false, fmt.Errorf("unhandled instruction %v (0x%02x)", instruction.Name, instruction.Kind)
    }

    return true, nil
}
