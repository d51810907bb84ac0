package lib

import (
    "bytes"
    "strings"
    "testing"
)

func TestInstructionReader(test *testing.T){
    data := []byte{0xa9, 0x01, 0x8d, 0x00, 0x02, 0x00}
    reader := NewInstructionReader(bytes.NewReader(data), MakeInstructionTable())

    var kinds []byte
    for {
        instruction, err := reader.ReadInstruction()
        if err != nil {
            break
        }
        kinds = append(kinds, instruction.Kind)
    }

    expected := []byte{0xa9, 0x8d, 0x00}
    if len(kinds) != len(expected) {
        test.Fatalf("expected %v instructions but got %v", len(expected), len(kinds))
    }
    for i := range expected {
        if kinds[i] != expected[i] {
            test.Fatalf("instruction %v: expected opcode 0x%02x but got 0x%02x", i, expected[i], kinds[i])
        }
    }
}

func TestDisassembleStopsAtUndefined(test *testing.T){
    memory := NewMemory()
    assembler := NewAssembler(memory)
    err := assembler.Assemble("lda #$05\nsta $0200\nbrk")
    if err != nil {
        test.Fatalf("could not assemble: %v", err)
    }

    listing := Disassemble(memory, 0x0800, 100, MakeInstructionTable())
    if len(listing) != 3 {
        test.Fatalf("expected 3 instructions but got %v", len(listing))
    }

    if listing[0].Instruction.Name != "lda" || listing[1].Instruction.Name != "sta" || listing[2].Instruction.Name != "brk" {
        test.Fatalf("unexpected listing %v", listing)
    }
    if listing[1].Address != 0x0802 {
        test.Fatalf("expected the second instruction at 0x0802 but was 0x%04x", listing[1].Address)
    }
}

func TestDisassemblyFormat(test *testing.T){
    memory := NewMemory()
    assembler := NewAssembler(memory)
    err := assembler.Assemble("lda #$05")
    if err != nil {
        test.Fatalf("could not assemble: %v", err)
    }

    text := DisassembleToText(memory, 0x0800, 10, MakeInstructionTable())
    if !strings.Contains(text, "0800:") || !strings.Contains(text, "lda #$05") {
        test.Fatalf("unexpected listing %q", text)
    }
}

/* assembling the disassembly of a program reproduces the same bytes */
func TestDisassembleRoundTrip(test *testing.T){
    source := `
        lda #$05
        adc $10
        sta $0200,x
        ldx $10,y
        and ($20,x)
        ora ($20),y
        jmp ($0300)
        asl
        ror $44
        bne $fb
        rts
        brk
    `

    memory := NewMemory()
    assembler := NewAssembler(memory)
    err := assembler.Assemble(source)
    if err != nil {
        test.Fatalf("could not assemble: %v", err)
    }
    size := assembler.Emitted

    var listing strings.Builder
    for _, entry := range Disassemble(memory, 0x0800, 100, MakeInstructionTable()) {
        listing.WriteString(entry.Instruction.String())
        listing.WriteString("\n")
    }

    second := NewMemory()
    reassembler := NewAssembler(second)
    err = reassembler.Assemble(listing.String())
    if err != nil {
        test.Fatalf("could not reassemble the listing: %v", err)
    }

    if reassembler.Emitted != size {
        test.Fatalf("expected %v bytes on the second round but got %v", size, reassembler.Emitted)
    }
    for i := 0; i < size; i++ {
        address := uint16(0x0800 + i)
        if memory.Load(address) != second.Load(address) {
            test.Fatalf("round trip mismatch at 0x%04x: 0x%02x vs 0x%02x",
                address, memory.Load(address), second.Load(address))
        }
    }
}
