package lib

import (
    "fmt"
    "io"
    "strings"
)

/* decode instructions from a raw byte stream */
type InstructionReader struct {
    data io.Reader
    table InstructionTable
}

func NewInstructionReader(data io.Reader, table InstructionTable) *InstructionReader {
    return &InstructionReader{
        data: data,
        table: table,
    }
}

func (reader *InstructionReader) ReadInstruction() (Instruction, error) {
    one := make([]byte, 1)
    _, err := io.ReadFull(reader.data, one)
    if err != nil {
        return Instruction{}, err
    }

    description, ok := reader.table[one[0]]
    if !ok {
        return Instruction{}, fmt.Errorf("unknown opcode 0x%02x", one[0])
    }

    operands := make([]byte, description.Mode.OperandSize())
    _, err = io.ReadFull(reader.data, operands)
    if err != nil {
        return Instruction{}, err
    }

    return Instruction{
        Name: description.Name,
        Kind: one[0],
        Mode: description.Mode,
        Operands: operands,
    }, nil
}

/* one decoded instruction plus where it came from */
type DisassembledInstruction struct {
    Address uint16
    Instruction Instruction
}

func (disassembled *DisassembledInstruction) String() string {
    var bytes strings.Builder
    fmt.Fprintf(&bytes, "%02x", disassembled.Instruction.Kind)
    for _, operand := range disassembled.Instruction.Operands {
        fmt.Fprintf(&bytes, " %02x", operand)
    }
    return fmt.Sprintf("%04x: %-8v  %v", disassembled.Address, bytes.String(), disassembled.Instruction.String())
}

/* walk memory from 'start', decoding until an undefined cell, an unknown
 * opcode, or 'limit' instructions. the limit keeps runaway data regions
 * from producing endless junk.
 */
func Disassemble(memory *Memory, start uint16, limit int, table InstructionTable) []DisassembledInstruction {
    var out []DisassembledInstruction

    address := uint32(start)
    for len(out) < limit && address <= 0xffff {
        if !memory.IsDefined(uint16(address)) {
            break
        }

        opcode := memory.Load(uint16(address))
        description, ok := table[opcode]
        if !ok {
            break
        }

        count := description.Mode.OperandSize()
        operands := make([]byte, count)
        for i := 0; i < count; i++ {
            operands[i] = memory.Load(uint16(address) + uint16(i + 1))
        }

        out = append(out, DisassembledInstruction{
            Address: uint16(address),
            Instruction: Instruction{
                Name: description.Name,
                Kind: opcode,
                Mode: description.Mode,
                Operands: operands,
            },
        })

        address += uint32(count) + 1
    }

    return out
}

/* the listing as one printable block */
func DisassembleToText(memory *Memory, start uint16, limit int, table InstructionTable) string {
    var out strings.Builder
    for _, disassembled := range Disassemble(memory, start, limit, table) {
        out.WriteString(disassembled.String())
        out.WriteString("\n")
    }
    return out.String()
}
