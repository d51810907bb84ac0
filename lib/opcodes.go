package lib

/* assembler side tables. each mnemonic that takes an operand carries one
 * opcode per addressing form it supports, 0 meaning the form does not
 * exist. no addressed opcode is 0x00 so that is safe.
 */
type Opcodes struct {
    Immediate byte
    ZeroPage byte
    ZeroPageX byte
    ZeroPageY byte
    Absolute byte
    AbsoluteX byte
    AbsoluteY byte
    Indirect byte
    IndirectX byte
    IndirectY byte
}

var instructionOpcodes = map[string]Opcodes{
    "ADC": Opcodes{Immediate: 0x69, ZeroPage: 0x65, ZeroPageX: 0x75, Absolute: 0x6d, AbsoluteX: 0x7d, AbsoluteY: 0x79, IndirectX: 0x61, IndirectY: 0x71},
    "AND": Opcodes{Immediate: 0x29, ZeroPage: 0x25, ZeroPageX: 0x35, Absolute: 0x2d, AbsoluteX: 0x3d, AbsoluteY: 0x39, IndirectX: 0x21, IndirectY: 0x31},
    "ASL": Opcodes{ZeroPage: 0x06, ZeroPageX: 0x16, Absolute: 0x0e, AbsoluteX: 0x1e},
    "BIT": Opcodes{ZeroPage: 0x24, Absolute: 0x2c},
    "CMP": Opcodes{Immediate: 0xc9, ZeroPage: 0xc5, ZeroPageX: 0xd5, Absolute: 0xcd, AbsoluteX: 0xdd, AbsoluteY: 0xd9, IndirectX: 0xc1, IndirectY: 0xd1},
    "CPX": Opcodes{Immediate: 0xe0, ZeroPage: 0xe4, Absolute: 0xec},
    "CPY": Opcodes{Immediate: 0xc0, ZeroPage: 0xc4, Absolute: 0xcc},
    "DEC": Opcodes{ZeroPage: 0xc6, ZeroPageX: 0xd6, Absolute: 0xce, AbsoluteX: 0xde},
    "EOR": Opcodes{Immediate: 0x49, ZeroPage: 0x45, ZeroPageX: 0x55, Absolute: 0x4d, AbsoluteX: 0x5d, AbsoluteY: 0x59, IndirectX: 0x41, IndirectY: 0x51},
    "INC": Opcodes{ZeroPage: 0xe6, ZeroPageX: 0xf6, Absolute: 0xee, AbsoluteX: 0xfe},
    "JMP": Opcodes{Absolute: 0x4c, Indirect: 0x6c},
    "JSR": Opcodes{Absolute: 0x20},
    "LDA": Opcodes{Immediate: 0xa9, ZeroPage: 0xa5, ZeroPageX: 0xb5, Absolute: 0xad, AbsoluteX: 0xbd, AbsoluteY: 0xb9, IndirectX: 0xa1, IndirectY: 0xb1},
    "LDX": Opcodes{Immediate: 0xa2, ZeroPage: 0xa6, ZeroPageY: 0xb6, Absolute: 0xae, AbsoluteY: 0xbe},
    "LDY": Opcodes{Immediate: 0xa0, ZeroPage: 0xa4, ZeroPageX: 0xb4, Absolute: 0xac, AbsoluteX: 0xbc},
    "LSR": Opcodes{ZeroPage: 0x46, ZeroPageX: 0x56, Absolute: 0x4e, AbsoluteX: 0x5e},
    "ORA": Opcodes{Immediate: 0x09, ZeroPage: 0x05, ZeroPageX: 0x15, Absolute: 0x0d, AbsoluteX: 0x1d, AbsoluteY: 0x19, IndirectX: 0x01, IndirectY: 0x11},
    "ROL": Opcodes{ZeroPage: 0x26, ZeroPageX: 0x36, Absolute: 0x2e, AbsoluteX: 0x3e},
    "ROR": Opcodes{ZeroPage: 0x66, ZeroPageX: 0x76, Absolute: 0x6e, AbsoluteX: 0x7e},
    "SBC": Opcodes{Immediate: 0xe9, ZeroPage: 0xe5, ZeroPageX: 0xf5, Absolute: 0xed, AbsoluteX: 0xfd, AbsoluteY: 0xf9, IndirectX: 0xe1, IndirectY: 0xf1},
    "STA": Opcodes{ZeroPage: 0x85, ZeroPageX: 0x95, Absolute: 0x8d, AbsoluteX: 0x9d, AbsoluteY: 0x99, IndirectX: 0x81, IndirectY: 0x91},
    "STX": Opcodes{ZeroPage: 0x86, ZeroPageY: 0x96, Absolute: 0x8e},
    "STY": Opcodes{ZeroPage: 0x84, ZeroPageX: 0x94, Absolute: 0x8c},
}

/* implied and accumulator forms, plus the extensions */
var singleOpcodes = map[string]byte{
    "BRK": 0x00,
    "CLC": 0x18,
    "SEC": 0x38,
    "CLI": 0x58,
    "SEI": 0x78,
    "CLV": 0xb8,
    "CLD": 0xd8,
    "SED": 0xf8,
    "NOP": 0xea,
    "TAX": 0xaa,
    "TXA": 0x8a,
    "TAY": 0xa8,
    "TYA": 0x98,
    "TSX": 0xba,
    "TXS": 0x9a,
    "DEX": 0xca,
    "DEY": 0x88,
    "INX": 0xe8,
    "INY": 0xc8,
    "PHA": 0x48,
    "PLA": 0x68,
    "PHP": 0x08,
    "PLP": 0x28,
    "RTS": 0x60,
    "RTI": 0x40,
    "ASL": 0x0a,
    "LSR": 0x4a,
    "ROL": 0x2a,
    "ROR": 0x6a,

    "HLT": 0x02,
    "OUT": 0xf2,
    "OUY": 0xfa,
    "IN": 0xf3,
    "WAI": 0xf7,
}

var branchOpcodes = map[string]byte{
    "BPL": 0x10,
    "BMI": 0x30,
    "BVC": 0x50,
    "BVS": 0x70,
    "BCC": 0x90,
    "BCS": 0xb0,
    "BNE": 0xd0,
    "BEQ": 0xf0,
}

var reservedWords map[string]bool

func init(){
    reservedWords = make(map[string]bool)
    for name := range instructionOpcodes {
        reservedWords[name] = true
    }
    for name := range singleOpcodes {
        reservedWords[name] = true
    }
    for name := range branchOpcodes {
        reservedWords[name] = true
    }
    for _, name := range []string{"EQU", "DEFINE", "ORG", "DB", "DW", ".ORG", ".DB", ".DW"} {
        reservedWords[name] = true
    }
}

/* a name that can never be a label or constant */
func IsReservedWord(name string) bool {
    return reservedWords[name]
}
