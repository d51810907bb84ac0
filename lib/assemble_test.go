package lib

import (
    "errors"
    "testing"
)

func assembleSource(test *testing.T, source string) *Assembler {
    memory := NewMemory()
    assembler := NewAssembler(memory)
    err := assembler.Assemble(source)
    if err != nil {
        test.Fatalf("could not assemble: %v", err)
    }
    return assembler
}

func checkBytes(test *testing.T, memory *Memory, start uint16, expected []byte){
    for i, value := range expected {
        address := start + uint16(i)
        if !memory.IsDefined(address) {
            test.Fatalf("expected memory at 0x%04x to be defined", address)
        }
        if memory.Load(address) != value {
            test.Fatalf("expected memory at 0x%04x to be 0x%02x but was 0x%02x", address, value, memory.Load(address))
        }
    }
}

func expectAssembleError(test *testing.T, source string, code int){
    memory := NewMemory()
    assembler := NewAssembler(memory)
    err := assembler.Assemble(source)
    if err == nil {
        test.Fatalf("expected assemble to fail with error #%v", code)
    }
    var failure *AssembleError
    if !errors.As(err, &failure) {
        test.Fatalf("expected an assemble error, got %v", err)
    }
    if failure.Code != code {
        test.Fatalf("expected error #%v but got #%v: %v", code, failure.Code, failure)
    }
}

func TestTokenize(test *testing.T){
    tokens := Tokenize("  lda   #$05 ; load five\n\nstart\n  sta $10\n")

    expected := []string{"LDA", "#$05", "START:", "STA", "$10"}
    if len(tokens) != len(expected) {
        test.Fatalf("expected %v tokens but got %v: %v", len(expected), len(tokens), tokens)
    }
    for i := range expected {
        if tokens[i] != expected[i] {
            test.Fatalf("token %v: expected %v but got %v", i, expected[i], tokens[i])
        }
    }
}

func TestTokenizeDataStrings(test *testing.T){
    tokens := Tokenize(".db \"a b\", 1")
    if len(tokens) != 2 {
        test.Fatalf("expected 2 tokens but got %v: %v", len(tokens), tokens)
    }
    if tokens[1] != "\"a\",32,\"b\",1" {
        test.Fatalf("unexpected data operand %v", tokens[1])
    }
}

func TestAssembleSimple(test *testing.T){
    assembler := assembleSource(test, `
        lda #$05
        adc #$03
        sta $10
        brk
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0xa9, 0x05, // lda #$05
        0x69, 0x03, // adc #$03
        0x85, 0x10, // sta $10
        0x00,       // brk
    })
}

func TestAddressingModes(test *testing.T){
    assembler := assembleSource(test, `
        lda #$01
        lda $10
        lda $10,x
        lda $1234
        lda $1234,x
        lda $1234,y
        lda ($20,x)
        lda ($20),y
        ldx $10,y
        jmp ($1234)
        asl
        asl a
        asl $10
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0xa9, 0x01,
        0xa5, 0x10,
        0xb5, 0x10,
        0xad, 0x34, 0x12,
        0xbd, 0x34, 0x12,
        0xb9, 0x34, 0x12,
        0xa1, 0x20,
        0xb1, 0x20,
        0xb6, 0x10,
        0x6c, 0x34, 0x12,
        0x0a,
        0x0a,
        0x06, 0x10,
    })
}

/* $0010 is spelled wide, so it assembles absolute even though the value
 * fits in a byte
 */
func TestWideLiteral(test *testing.T){
    assembler := assembleSource(test, "lda $0010")
    checkBytes(test, assembler.Memory, 0x0800, []byte{0xad, 0x10, 0x00})
}

func TestConstants(test *testing.T){
    assembler := assembleSource(test, `
        define screen $0200
        size = 32
        last equ screen+size
        lda #size
        sta screen
        sta last
        lda #<screen
        lda #>screen
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0xa9, 0x20,       // lda #32
        0x8d, 0x00, 0x02, // sta $0200
        0x8d, 0x20, 0x02, // sta $0220
        0xa9, 0x00,       // lda #<$0200
        0xa9, 0x02,       // lda #>$0200
    })
}

func TestConstantBasePreserved(test *testing.T){
    memory := NewMemory()
    assembler := NewAssembler(memory)
    assembler.Constants = map[string]string{"BASE": "$10"}

    value, err := assembler.addValue("BASE", "+8")
    if err != nil {
        test.Fatalf("addValue failed: %v", err)
    }
    if value != "$18" {
        test.Fatalf("expected $18 but got %v", value)
    }

    value, err = assembler.addValue("200", "-1")
    if err != nil {
        test.Fatalf("addValue failed: %v", err)
    }
    if value != "199" {
        test.Fatalf("expected 199 but got %v", value)
    }
}

func TestHighLowByte(test *testing.T){
    value, err := getHighLowByte("$1234", '<')
    if err != nil || value != "$34" {
        test.Fatalf("expected $34 but got %v (%v)", value, err)
    }

    value, err = getHighLowByte("$1234", '>')
    if err != nil || value != "$12" {
        test.Fatalf("expected $12 but got %v (%v)", value, err)
    }

    value, err = getHighLowByte("$1234", 0)
    if err != nil || value != "$1234" {
        test.Fatalf("expected $1234 but got %v (%v)", value, err)
    }

    _, err = getHighLowByte("$1234", '!')
    var failure *AssembleError
    if !errors.As(err, &failure) || failure.Code != ErrorHighLowArgument {
        test.Fatalf("expected error #%v but got %v", ErrorHighLowArgument, err)
    }
}

func TestForwardReference(test *testing.T){
    assembler := assembleSource(test, `
        jmp later
        lda #$01
        later:
        brk
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0x4c, 0x05, 0x08, // jmp $0805
        0xa9, 0x01,       // lda #$01
        0x00,             // brk
    })

    if len(assembler.WordFixups) != 0 || len(assembler.ByteFixups) != 0 || len(assembler.BranchFixups) != 0 {
        test.Fatalf("expected all fixup trackers to be drained")
    }
}

func TestForwardReferenceBytes(test *testing.T){
    assembler := assembleSource(test, `
        lda #<message
        ldx #>message
        message: .db "hi"
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0xa9, 0x04, // lda #$04, low byte of $0804
        0xa2, 0x08, // ldx #$08, high byte of $0804
        'h', 'i',
    })
}

func TestBranch(test *testing.T){
    assembler := assembleSource(test, `
        ldx #$00
        loop:
        inx
        cpx #$05
        bne loop
        brk
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0xa2, 0x00, // ldx #$00
        0xe8,       // inx
        0xe0, 0x05, // cpx #$05
        0xd0, 0xfb, // bne -5
        0x00,       // brk
    })
}

func TestBranchForward(test *testing.T){
    assembler := assembleSource(test, `
        beq done
        lda #$01
        done:
        brk
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0xf0, 0x02, // beq +2
        0xa9, 0x01, // lda #$01
        0x00,       // brk
    })
}

func TestBranchOutOfRange(test *testing.T){
    source := "beq far\n"
    for i := 0; i < 100; i++ {
        source += "lda $1234\n"
    }
    source += "far:\nbrk\n"
    expectAssembleError(test, source, ErrorBranchRange)
}

func TestDataDirectives(test *testing.T){
    assembler := assembleSource(test, `
        .org $9000
        values: .db 1, $02, %00000011, "AB"
        words: .dw $1234, values
        .dw after
        after:
    `)

    checkBytes(test, assembler.Memory, 0x9000, []byte{
        0x01, 0x02, 0x03, 'A', 'B',
        0x34, 0x12, // $1234
        0x00, 0x90, // values
        0x0b, 0x90, // after
    })
}

func TestDataByteSelectors(test *testing.T){
    assembler := assembleSource(test, `
        .org $8000
        .db <target, >target
        target:
    `)

    checkBytes(test, assembler.Memory, 0x8000, []byte{0x02, 0x80})
}

func TestOrgWithConstant(test *testing.T){
    assembler := assembleSource(test, `
        define base $a000
        .org base
        brk
    `)

    checkBytes(test, assembler.Memory, 0xa000, []byte{0x00})
}

func TestResetVector(test *testing.T){
    assembler := assembleSource(test, `
        .org $fffc
        .dw start
        .org $8000
        start:
        lda #$41
        brk
    `)

    checkBytes(test, assembler.Memory, 0xfffc, []byte{0x00, 0x80})
    checkBytes(test, assembler.Memory, 0x8000, []byte{0xa9, 0x41, 0x00})
}

func TestLabelWithOffset(test *testing.T){
    assembler := assembleSource(test, `
        jmp start+2
        start:
        lda #$01
        brk
    `)

    checkBytes(test, assembler.Memory, 0x0800, []byte{
        0x4c, 0x05, 0x08, // jmp $0803+2
        0xa9, 0x01,
        0x00,
    })
}

func TestAssembleErrors(test *testing.T){
    expectAssembleError(test, "jmp later", ErrorLabelNotFound)
    expectAssembleError(test, "bne nowhere", ErrorBranchLabelNotFound)
    expectAssembleError(test, "lda: brk", ErrorReservedWord)
    expectAssembleError(test, "define x 1\ndefine x 2", ErrorConstantDefined)
    expectAssembleError(test, "define x undefined_thing", ErrorConstantUndefined)
    expectAssembleError(test, "org", ErrorOrgMissing)
    expectAssembleError(test, ".db \"abc", ErrorUnclosedString)
    expectAssembleError(test, ".dw <somewhere", ErrorHighLowOnWord)
    expectAssembleError(test, "here:\nhere:", ErrorLabelDefined)
    expectAssembleError(test, "define dup 1\ndup:", ErrorLabelAndConstant)
    expectAssembleError(test, "blarg #$05", ErrorUnknownInstruction)
    expectAssembleError(test, "lda #message\nmessage:", ErrorLabelSingleByte)
    expectAssembleError(test, "start:\norg start", ErrorOrgArgument)
    expectAssembleError(test, "jmp #$05", ErrorAddressingMode)
}

func TestErrorMessageFormat(test *testing.T){
    memory := NewMemory()
    assembler := NewAssembler(memory)
    err := assembler.Assemble("jmp later")
    if err == nil {
        test.Fatalf("expected an error")
    }
    if err.Error() != "Error #1: label not found: LATER" {
        test.Fatalf("unexpected error text %q", err.Error())
    }
}

func TestEmittedCount(test *testing.T){
    assembler := assembleSource(test, "lda #$05\nbrk")
    if assembler.Emitted != 3 {
        test.Fatalf("expected 3 bytes emitted but got %v", assembler.Emitted)
    }
}
