package lib

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"
)

/* stable error codes for the assembler. hosts key their messages off these. */
const (
    ErrorLabelNotFound = 1
    ErrorBranchLabelNotFound = 2
    ErrorBranchRange = 3
    ErrorOperandType = 4
    ErrorReservedWord = 5
    ErrorConstantDefined = 6
    ErrorConstantUndefined = 7
    ErrorHighLowArgument = 8
    ErrorOrgMissing = 9
    ErrorUnclosedString = 10
    ErrorAfterString = 11
    ErrorDataMalformed = 12
    ErrorHighLowOnWord = 13
    ErrorLabelDefined = 14
    ErrorLabelAndConstant = 15
    ErrorUnknownInstruction = 16
    ErrorConvertValue = 17
    ErrorAddValue = 18
    ErrorLabelSingleByte = 19
    ErrorOrgArgument = 20
    ErrorAddressingMode = 21
    ErrorOperandParse = 22
)

type AssembleError struct {
    Code int
    Message string
}

func (failure *AssembleError) Error() string {
    return fmt.Sprintf("Error #%v: %v", failure.Code, failure.Message)
}

func assembleError(code int, format string, args ...interface{}) error {
    return &AssembleError{
        Code: code,
        Message: fmt.Sprintf(format, args...),
    }
}

/* a forward reference: the emit address of a placeholder and the symbol
 * that will fill it in during pass 2
 */
type Fixup struct {
    Address uint16
    Symbol string
}

type Assembler struct {
    Memory *Memory

    /* the emit pointer. during execution the same value is the PC. */
    PC uint16

    /* constants keep their textual value so a later < or > selector can
     * still pick a byte out of them
     */
    Constants map[string]string
    Labels map[string]uint16

    /* 16-bit references, 8-bit references carrying a < or > selector,
     * and relative branches
     */
    WordFixups []Fixup
    ByteFixups []Fixup
    BranchFixups []Fixup

    /* bytes emitted by the last Assemble call, placeholders included */
    Emitted int
}

func NewAssembler(memory *Memory) *Assembler {
    return &Assembler{
        Memory: memory,
    }
}

/* translate source text into the memory image. pass 1 resolves constants
 * and emits code with placeholders for labels that are not known yet,
 * pass 2 patches the placeholders.
 */
func (assembler *Assembler) Assemble(source string) error {
    assembler.Constants = make(map[string]string)
    assembler.Labels = make(map[string]uint16)
    assembler.WordFixups = nil
    assembler.ByteFixups = nil
    assembler.BranchFixups = nil
    assembler.Emitted = 0
    assembler.PC = DefaultStart

    tokens := Tokenize(source)

    tokens, err := assembler.extractConstants(tokens)
    if err != nil {
        return err
    }

    err = assembler.encodePass(tokens)
    if err != nil {
        return err
    }

    return assembler.resolveFixups()
}

var whitespaceRun = regexp.MustCompile(`[ \t]+`)

/* turn raw source into a flat token stream. comments are stripped, labels
 * get their trailing ':' inferred, and each instruction or directive ends
 * up as one mnemonic token plus at most one operand token.
 */
func Tokenize(source string) []string {
    var lines []string

    for _, line := range strings.Split(source, "\n") {
        if index := strings.Index(line, ";"); index != -1 {
            line = line[:index]
        }
        line = whitespaceRun.ReplaceAllString(line, " ")
        line = strings.TrimSpace(line)
        if line == "" {
            continue
        }
        line = uppercaseOutsideQuotes(line)

        fields := strings.Split(line, " ")
        fields = inferLabel(fields)
        fields = tokenizeLine(fields)
        if len(fields) > 0 {
            lines = append(lines, strings.Join(fields, " "))
        }
    }

    if len(lines) == 0 {
        return nil
    }

    return strings.Split(strings.Join(lines, " "), " ")
}

/* mnemonics and hex digits are case insensitive. characters inside string
 * literals are not.
 */
func uppercaseOutsideQuotes(line string) string {
    var out strings.Builder
    var quote byte = 0
    for i := 0; i < len(line); i++ {
        letter := line[i]
        if quote == 0 {
            if letter == '"' || letter == '\'' {
                quote = letter
            }
            out.WriteString(strings.ToUpper(string(letter)))
        } else {
            if letter == quote {
                quote = 0
            }
            out.WriteByte(letter)
        }
    }
    return out.String()
}

/* a token alone on its line, or one that precedes a reserved word, is an
 * unmarked label. give it the trailing ':' the rest of the assembler
 * expects.
 */
func inferLabel(fields []string) []string {
    first := fields[0]
    if strings.HasSuffix(first, ":") || IsReservedWord(first) {
        return fields
    }

    if len(fields) == 1 {
        fields[0] = first + ":"
    } else if IsReservedWord(fields[1]) {
        fields[0] = first + ":"
    }
    return fields
}

/* reduce a line to [label:] mnemonic [operand]. constant definitions come
 * out as NAME = VALUE with EQU normalised to '='. operands lose their
 * internal spaces; data operands keep string contents intact by turning
 * in-string spaces into ",32," (character code 32).
 */
func tokenizeLine(fields []string) []string {
    if len(fields) >= 3 && (fields[1] == "=" || fields[1] == "EQU") {
        name := strings.TrimSuffix(fields[0], ":")
        return []string{name, "=", strings.Join(fields[2:], "")}
    }

    var prefix []string
    rest := fields
    if strings.HasSuffix(fields[0], ":") {
        prefix = fields[:1]
        rest = fields[1:]
    }

    if len(rest) < 2 {
        return append(prefix, rest...)
    }

    head := rest[0]
    switch head {
        case "DEFINE":
            if len(rest) >= 3 {
                rest = []string{head, rest[1], strings.Join(rest[2:], "")}
            }
        case ".DB", "DB", ".DW", "DW":
            rest = []string{head, compactData(strings.Join(rest[1:], " "))}
        default:
            rest = []string{head, strings.Join(rest[1:], "")}
    }

    return append(prefix, rest...)
}

/* remove spaces between data items and protect spaces inside string
 * literals so a single space can separate tokens later
 */
func compactData(operand string) string {
    var out strings.Builder
    var quote byte = 0
    for i := 0; i < len(operand); i++ {
        letter := operand[i]
        if quote == 0 {
            if letter == '"' || letter == '\'' {
                quote = letter
            }
            if letter != ' ' {
                out.WriteByte(letter)
            }
        } else {
            if letter == quote {
                quote = 0
                out.WriteByte(letter)
            } else if letter == ' ' {
                out.WriteByte(quote)
                out.WriteString(",32,")
                out.WriteByte(quote)
            } else {
                out.WriteByte(letter)
            }
        }
    }
    return out.String()
}

/* numeric literals: $ is hex, % is binary, bare digits are decimal */
func convertValue(text string) (int, error) {
    if text == "" {
        return 0, assembleError(ErrorConvertValue, "empty value")
    }

    var value uint64
    var err error
    switch text[0] {
        case '$':
            value, err = strconv.ParseUint(text[1:], 16, 32)
        case '%':
            value, err = strconv.ParseUint(text[1:], 2, 32)
        default:
            value, err = strconv.ParseUint(text, 10, 32)
    }
    if err != nil {
        return 0, assembleError(ErrorConvertValue, "could not convert value '%v'", text)
    }
    return int(value), nil
}

func isNumeric(text string) bool {
    _, err := convertValue(text)
    return err == nil
}

var identifierPattern = regexp.MustCompile(`^[A-Z_][A-Z0-9_]*$`)

func isIdentifier(text string) bool {
    return identifierPattern.MatchString(text)
}

/* a literal whose spelling is 16-bit even when its value fits in a byte,
 * like $0010 or %000100000000
 */
func isWordLiteral(text string) bool {
    if strings.HasPrefix(text, "$") {
        return len(text) - 1 > 2
    }
    if strings.HasPrefix(text, "%") {
        return len(text) - 1 > 8
    }
    value, err := convertValue(text)
    return err == nil && value > 0xff
}

/* render a value in the same base as a reference spelling */
func formatValue(value int, like string) string {
    if strings.HasPrefix(like, "$") {
        return fmt.Sprintf("$%X", value)
    }
    if strings.HasPrefix(like, "%") {
        return "%" + strconv.FormatInt(int64(value), 2)
    }
    return strconv.Itoa(value)
}

/* split NAME+OFFSET / NAME-OFFSET. the sign byte is 0 when there is no
 * offset part.
 */
func splitOffset(text string) (string, byte, string) {
    for i := 1; i < len(text); i++ {
        if text[i] == '+' || text[i] == '-' {
            return text[:i], text[i], text[i+1:]
        }
    }
    return text, 0, ""
}

/* evaluate i, or i plus a signed second operand. the result keeps the
 * base prefix of i. the sum is masked to 8 bits unless either side is
 * visibly wider than a byte.
 */
func (assembler *Assembler) addValue(i string, v string) (string, error) {
    if value, ok := assembler.Constants[i]; ok {
        i = value
    }
    if v == "" {
        return i, nil
    }

    sign := v[0]
    operand := v[1:]
    if value, ok := assembler.Constants[operand]; ok {
        operand = value
    }

    left, err := convertValue(i)
    if err != nil {
        return "", assembleError(ErrorAddValue, "could not add to '%v'", i)
    }
    right, err := convertValue(operand)
    if err != nil {
        return "", assembleError(ErrorAddValue, "could not add '%v' to '%v'", operand, i)
    }

    var result int
    if sign == '-' {
        result = left - right
    } else {
        result = left + right
    }

    if left > 0xff || right > 0xff {
        result = result & 0xffff
    } else {
        result = result & 0xff
    }

    return formatValue(result, i), nil
}

/* apply a < (low byte) or > (high byte) selector to a resolved value */
func getHighLowByte(text string, selector byte) (string, error) {
    if selector == 0 {
        return text, nil
    }

    value, err := convertValue(text)
    if err != nil {
        return "", err
    }

    switch selector {
        case '<':
            value = value & 0xff
        case '>':
            value = value >> 8
        default:
            return "", assembleError(ErrorHighLowArgument, "bad byte selector '%c'", selector)
    }
    return formatValue(value, text), nil
}

/* pass 1a: pull DEFINE NAME VALUE and NAME = VALUE out of the token
 * stream and record them in the constant table
 */
func (assembler *Assembler) extractConstants(tokens []string) ([]string, error) {
    var out []string
    i := 0
    for i < len(tokens) {
        if i + 2 < len(tokens) && tokens[i+1] == "=" {
            err := assembler.defineConstant(tokens[i], tokens[i+2])
            if err != nil {
                return nil, err
            }
            i += 3
            continue
        }
        if tokens[i] == "DEFINE" {
            if i + 2 >= len(tokens) {
                return nil, assembleError(ErrorOperandParse, "DEFINE needs a name and a value")
            }
            err := assembler.defineConstant(tokens[i+1], tokens[i+2])
            if err != nil {
                return nil, err
            }
            i += 3
            continue
        }
        out = append(out, tokens[i])
        i += 1
    }
    return out, nil
}

func (assembler *Assembler) defineConstant(name string, value string) error {
    if IsReservedWord(name) {
        return assembleError(ErrorReservedWord, "'%v' is a reserved word", name)
    }
    if !isIdentifier(name) {
        return assembleError(ErrorOperandParse, "bad constant name '%v'", name)
    }
    if _, ok := assembler.Constants[name]; ok {
        return assembleError(ErrorConstantDefined, "constant '%v' is already defined", name)
    }
    if _, ok := assembler.Labels[name]; ok {
        return assembleError(ErrorLabelAndConstant, "'%v' is already a label", name)
    }

    base, sign, offset := splitOffset(value)
    if sign != 0 {
        evaluated, err := assembler.addValue(base, string(sign) + offset)
        if err != nil {
            return err
        }
        value = evaluated
    } else {
        if other, ok := assembler.Constants[base]; ok {
            value = other
        } else if !isNumeric(base) {
            return assembleError(ErrorConstantUndefined, "constant '%v' is not defined", base)
        }
    }

    assembler.Constants[name] = value
    return nil
}

func (assembler *Assembler) defineLabel(name string) error {
    if IsReservedWord(name) {
        return assembleError(ErrorReservedWord, "'%v' is a reserved word", name)
    }
    if !isIdentifier(name) {
        return assembleError(ErrorOperandParse, "bad label name '%v'", name)
    }
    if _, ok := assembler.Constants[name]; ok {
        return assembleError(ErrorLabelAndConstant, "'%v' is already a constant", name)
    }
    if _, ok := assembler.Labels[name]; ok {
        return assembleError(ErrorLabelDefined, "label '%v' is already defined", name)
    }

    assembler.Labels[name] = assembler.PC
    return nil
}

func (assembler *Assembler) emitByte(value byte){
    assembler.Memory.StoreDirect(assembler.PC, value)
    assembler.PC += 1
    assembler.Emitted += 1
}

func (assembler *Assembler) emitWord(value uint16){
    assembler.emitByte(byte(value))
    assembler.emitByte(byte(value >> 8))
}

/* cells a later pass will fill in. they stay marked undefined so running
 * into one at execution time is detectable.
 */
func (assembler *Assembler) emitPlaceholder(count int){
    for i := 0; i < count; i++ {
        assembler.Memory.StoreUndefined(assembler.PC)
        assembler.PC += 1
        assembler.Emitted += 1
    }
}

/* pass 1b: walk the remaining tokens, defining labels and encoding
 * instructions and data
 */
func (assembler *Assembler) encodePass(tokens []string) error {
    i := 0
    for i < len(tokens) {
        token := tokens[i]
        if token == "" {
            i += 1
            continue
        }

        if strings.HasSuffix(token, ":") && len(token) > 1 {
            err := assembler.defineLabel(strings.TrimSuffix(token, ":"))
            if err != nil {
                return err
            }
            i += 1
            continue
        }

        operand := ""
        hasOperand := false
        if i + 1 < len(tokens) && !IsReservedWord(tokens[i+1]) && !strings.HasSuffix(tokens[i+1], ":") {
            operand = tokens[i+1]
            hasOperand = true
        }

        switch {
            case token == "ORG" || token == ".ORG":
                if !hasOperand {
                    return assembleError(ErrorOrgMissing, "ORG needs an address")
                }
                err := assembler.setOrigin(operand)
                if err != nil {
                    return err
                }
                i += 2

            case token == ".DB" || token == "DB":
                if !hasOperand {
                    return assembleError(ErrorDataMalformed, ".DB needs at least one value")
                }
                err := assembler.dataBytes(operand)
                if err != nil {
                    return err
                }
                i += 2

            case token == ".DW" || token == "DW":
                if !hasOperand {
                    return assembleError(ErrorDataMalformed, ".DW needs at least one value")
                }
                err := assembler.dataWords(operand)
                if err != nil {
                    return err
                }
                i += 2

            default:
                if _, ok := branchOpcodes[token]; ok {
                    if !hasOperand {
                        return assembleError(ErrorOperandParse, "%v needs a target", token)
                    }
                    err := assembler.encodeBranch(token, operand)
                    if err != nil {
                        return err
                    }
                    i += 2
                    break
                }

                if _, ok := instructionOpcodes[token]; ok {
                    if hasOperand {
                        err := assembler.encodeInstruction(token, operand)
                        if err != nil {
                            return err
                        }
                        i += 2
                        break
                    }
                    /* asl/lsr/rol/ror with nothing after them mean the
                     * accumulator form
                     */
                    if opcode, ok := singleOpcodes[token]; ok {
                        assembler.emitByte(opcode)
                        i += 1
                        break
                    }
                    return assembleError(ErrorOperandParse, "%v needs an operand", token)
                }

                if opcode, ok := singleOpcodes[token]; ok {
                    if hasOperand {
                        return assembleError(ErrorOperandParse, "%v does not take an operand", token)
                    }
                    assembler.emitByte(opcode)
                    i += 1
                    break
                }

                return assembleError(ErrorUnknownInstruction, "unknown instruction '%v'", token)
        }
    }
    return nil
}

func (assembler *Assembler) setOrigin(operand string) error {
    base, sign, offset := splitOffset(operand)
    if value, ok := assembler.Constants[base]; ok {
        base = value
    }
    if !isNumeric(base) {
        return assembleError(ErrorOrgArgument, "ORG takes a number or constant, not '%v'", operand)
    }
    if sign != 0 {
        combined, err := assembler.addValue(base, string(sign) + offset)
        if err != nil {
            return err
        }
        base = combined
    }
    value, err := convertValue(base)
    if err != nil {
        return assembleError(ErrorOrgArgument, "bad ORG address '%v'", operand)
    }
    assembler.PC = uint16(value)
    return nil
}

/* the shape of one parsed operand. either Resolved with a numeric Value,
 * or an unresolved Symbol destined for a fixup tracker.
 */
type operandInfo struct {
    Mode AddressMode
    Selector byte
    Value int
    Resolved bool
    WordLiteral bool
    Symbol string
}

var indirectXPattern = regexp.MustCompile(`^\((.+),X\)$`)
var indirectYPattern = regexp.MustCompile(`^\((.+)\),Y$`)
var indirectPattern = regexp.MustCompile(`^\((.+)\)$`)

/* classify the operand's addressing form and resolve its value as far as
 * pass 1 can. indexed forms come back as absolute; the encoder narrows
 * them to zero page when the value fits.
 */
func (assembler *Assembler) parseOperand(text string) (operandInfo, error) {
    info := operandInfo{}
    body := text

    switch {
        case strings.HasPrefix(text, "#"):
            info.Mode = ModeImmediate
            body = text[1:]
        case indirectXPattern.MatchString(text):
            info.Mode = ModeIndirectX
            body = indirectXPattern.FindStringSubmatch(text)[1]
        case indirectYPattern.MatchString(text):
            info.Mode = ModeIndirectY
            body = indirectYPattern.FindStringSubmatch(text)[1]
        case indirectPattern.MatchString(text):
            info.Mode = ModeIndirect
            body = indirectPattern.FindStringSubmatch(text)[1]
        case strings.HasSuffix(text, ",X"):
            info.Mode = ModeAbsoluteX
            body = strings.TrimSuffix(text, ",X")
        case strings.HasSuffix(text, ",Y"):
            info.Mode = ModeAbsoluteY
            body = strings.TrimSuffix(text, ",Y")
        default:
            info.Mode = ModeAbsolute
    }

    if len(body) > 0 && (body[0] == '<' || body[0] == '>') {
        info.Selector = body[0]
        body = body[1:]
    }
    if body == "" {
        return info, assembleError(ErrorOperandParse, "could not parse operand '%v'", text)
    }

    base, sign, offset := splitOffset(body)
    if value, ok := assembler.Constants[base]; ok {
        base = value
    }

    if isNumeric(base) {
        if sign != 0 {
            combined, err := assembler.addValue(base, string(sign) + offset)
            if err != nil {
                return info, err
            }
            base = combined
        }
        value, err := convertValue(base)
        if err != nil {
            return info, err
        }
        info.Resolved = true
        info.Value = value
        info.WordLiteral = isWordLiteral(base)
        return info, nil
    }

    if !isIdentifier(base) {
        return info, assembleError(ErrorOperandType, "unrecognised operand '%v'", text)
    }

    info.Symbol = base
    if sign != 0 {
        info.Symbol = base + string(sign) + offset
    }
    return info, nil
}

/* emit a one byte operand: a resolved value directly, or a placeholder
 * plus a byte fixup. unresolved labels must say which byte they want.
 */
func (assembler *Assembler) emitByteOperand(info operandInfo) error {
    if info.Resolved {
        value := info.Value
        switch info.Selector {
            case '<':
                value = value & 0xff
            case '>':
                value = value >> 8
        }
        if value > 0xff {
            return assembleError(ErrorOperandType, "value %v does not fit in one byte", info.Value)
        }
        assembler.emitByte(byte(value))
        return nil
    }

    if info.Selector == 0 {
        return assembleError(ErrorLabelSingleByte, "label '%v' in a single byte operand needs < or >", info.Symbol)
    }
    assembler.ByteFixups = append(assembler.ByteFixups, Fixup{
        Address: assembler.PC,
        Symbol: string(info.Selector) + info.Symbol,
    })
    assembler.emitPlaceholder(1)
    return nil
}

func (assembler *Assembler) emitWordOperand(info operandInfo) {
    if info.Resolved {
        assembler.emitWord(uint16(info.Value))
        return
    }
    assembler.WordFixups = append(assembler.WordFixups, Fixup{
        Address: assembler.PC,
        Symbol: info.Symbol,
    })
    assembler.emitPlaceholder(2)
}

func (assembler *Assembler) encodeInstruction(name string, operand string) error {
    opcodes := instructionOpcodes[name]

    /* ASL A style accumulator spelling */
    if operand == "A" {
        if opcode, ok := singleOpcodes[name]; ok {
            assembler.emitByte(opcode)
            return nil
        }
    }

    info, err := assembler.parseOperand(operand)
    if err != nil {
        return err
    }

    switch info.Mode {
        case ModeImmediate:
            if opcodes.Immediate == 0 {
                return assembleError(ErrorAddressingMode, "%v has no immediate form", name)
            }
            assembler.emitByte(opcodes.Immediate)
            return assembler.emitByteOperand(info)

        case ModeIndirect:
            if opcodes.Indirect == 0 {
                return assembleError(ErrorAddressingMode, "%v has no indirect form", name)
            }
            assembler.emitByte(opcodes.Indirect)
            assembler.emitWordOperand(info)
            return nil

        case ModeIndirectX:
            if opcodes.IndirectX == 0 {
                return assembleError(ErrorAddressingMode, "%v has no (zp,x) form", name)
            }
            assembler.emitByte(opcodes.IndirectX)
            return assembler.emitByteOperand(info)

        case ModeIndirectY:
            if opcodes.IndirectY == 0 {
                return assembleError(ErrorAddressingMode, "%v has no (zp),y form", name)
            }
            assembler.emitByte(opcodes.IndirectY)
            return assembler.emitByteOperand(info)

        case ModeAbsolute, ModeAbsoluteX, ModeAbsoluteY:
            var zero byte
            var wide byte
            switch info.Mode {
                case ModeAbsolute:
                    zero, wide = opcodes.ZeroPage, opcodes.Absolute
                case ModeAbsoluteX:
                    zero, wide = opcodes.ZeroPageX, opcodes.AbsoluteX
                case ModeAbsoluteY:
                    zero, wide = opcodes.ZeroPageY, opcodes.AbsoluteY
            }

            /* an explicit < or > forces the 8-bit variant */
            if info.Selector != 0 {
                if zero == 0 {
                    return assembleError(ErrorAddressingMode, "%v has no zero page form", name)
                }
                assembler.emitByte(zero)
                return assembler.emitByteOperand(info)
            }

            if info.Resolved {
                if info.Value < 0x100 && !info.WordLiteral && zero != 0 {
                    assembler.emitByte(zero)
                    assembler.emitByte(byte(info.Value))
                    return nil
                }
                if wide == 0 {
                    /* spelled wide, but the instruction only has a zero
                     * page form. take it if the value fits.
                     */
                    if zero != 0 && info.Value < 0x100 {
                        assembler.emitByte(zero)
                        assembler.emitByte(byte(info.Value))
                        return nil
                    }
                    return assembleError(ErrorAddressingMode, "invalid addressing mode for %v", name)
                }
                if info.Value > 0xffff {
                    return assembleError(ErrorOperandType, "value %v does not fit in two bytes", info.Value)
                }
                assembler.emitByte(wide)
                assembler.emitWord(uint16(info.Value))
                return nil
            }

            /* an unresolved label is a 16-bit reference */
            if wide == 0 {
                if zero != 0 {
                    return assembleError(ErrorLabelSingleByte, "label '%v' in a single byte operand needs < or >", info.Symbol)
                }
                return assembleError(ErrorAddressingMode, "invalid addressing mode for %v", name)
            }
            assembler.emitByte(wide)
            assembler.emitWordOperand(info)
            return nil
    }

    return assembleError(ErrorOperandType, "unrecognised operand '%v' for %v", operand, name)
}

/* branches take a label, or a raw displacement byte when given a number */
func (assembler *Assembler) encodeBranch(name string, operand string) error {
    assembler.emitByte(branchOpcodes[name])

    body := operand
    if value, ok := assembler.Constants[body]; ok {
        body = value
    }

    if isNumeric(body) {
        value, err := convertValue(body)
        if err != nil {
            return err
        }
        if value > 0xff {
            return assembleError(ErrorOperandType, "branch displacement %v does not fit in one byte", value)
        }
        assembler.emitByte(byte(value))
        return nil
    }

    if !isIdentifier(body) {
        return assembleError(ErrorOperandParse, "could not parse branch target '%v'", operand)
    }

    assembler.BranchFixups = append(assembler.BranchFixups, Fixup{
        Address: assembler.PC,
        Symbol: body,
    })
    assembler.emitPlaceholder(1)
    return nil
}

/* split a compacted data operand on commas, leaving quoted strings whole */
func splitDataItems(operand string) ([]string, error) {
    var items []string
    var current strings.Builder
    var quote byte = 0

    for i := 0; i < len(operand); i++ {
        letter := operand[i]
        if quote == 0 {
            if letter == '"' || letter == '\'' {
                quote = letter
                current.WriteByte(letter)
            } else if letter == ',' {
                items = append(items, current.String())
                current.Reset()
            } else {
                current.WriteByte(letter)
            }
        } else {
            if letter == quote {
                quote = 0
            }
            current.WriteByte(letter)
        }
    }
    if quote != 0 {
        return nil, assembleError(ErrorUnclosedString, "string is missing its closing %c", quote)
    }
    items = append(items, current.String())
    return items, nil
}

/* .DB: one byte per item. strings emit a byte per character, labels go on
 * the byte tracker with < assumed when no selector is given.
 */
func (assembler *Assembler) dataBytes(operand string) error {
    items, err := splitDataItems(operand)
    if err != nil {
        return err
    }

    for _, item := range items {
        if item == "" {
            return assembleError(ErrorDataMalformed, "empty item in .DB list")
        }

        if item[0] == '"' || item[0] == '\'' {
            quote := item[0]
            end := strings.IndexByte(item[1:], quote)
            if end == -1 {
                return assembleError(ErrorUnclosedString, "string is missing its closing %c", quote)
            }
            if end + 2 != len(item) {
                return assembleError(ErrorAfterString, "unexpected text after string in .DB list")
            }
            for _, letter := range []byte(item[1:len(item)-1]) {
                assembler.emitByte(letter)
            }
            continue
        }

        var selector byte = 0
        body := item
        if body[0] == '<' || body[0] == '>' {
            selector = body[0]
            body = body[1:]
        }
        if value, ok := assembler.Constants[body]; ok {
            body = value
        }

        if isNumeric(body) {
            selected, err := getHighLowByte(body, selector)
            if err != nil {
                return err
            }
            value, err := convertValue(selected)
            if err != nil {
                return err
            }
            if value > 0xff {
                return assembleError(ErrorDataMalformed, "value %v does not fit in one byte", value)
            }
            assembler.emitByte(byte(value))
            continue
        }

        if !isIdentifier(body) {
            return assembleError(ErrorDataMalformed, "bad item '%v' in .DB list", item)
        }

        if selector == 0 {
            selector = '<'
        }
        assembler.ByteFixups = append(assembler.ByteFixups, Fixup{
            Address: assembler.PC,
            Symbol: string(selector) + body,
        })
        assembler.emitPlaceholder(1)
    }
    return nil
}

/* .DW: two bytes per item, little endian. byte selectors make no sense
 * on a word and are rejected.
 */
func (assembler *Assembler) dataWords(operand string) error {
    items, err := splitDataItems(operand)
    if err != nil {
        return err
    }

    for _, item := range items {
        if item == "" {
            return assembleError(ErrorDataMalformed, "empty item in .DW list")
        }
        if item[0] == '"' || item[0] == '\'' {
            return assembleError(ErrorDataMalformed, "strings are not allowed in .DW lists")
        }
        if item[0] == '<' || item[0] == '>' {
            return assembleError(ErrorHighLowOnWord, "byte selector on a word value '%v'", item)
        }

        body := item
        if value, ok := assembler.Constants[body]; ok {
            body = value
        }

        if isNumeric(body) {
            value, err := convertValue(body)
            if err != nil {
                return err
            }
            if value > 0xffff {
                return assembleError(ErrorDataMalformed, "value %v does not fit in two bytes", value)
            }
            assembler.emitWord(uint16(value))
            continue
        }

        if !isIdentifier(body) {
            return assembleError(ErrorDataMalformed, "bad item '%v' in .DW list", item)
        }

        assembler.WordFixups = append(assembler.WordFixups, Fixup{
            Address: assembler.PC,
            Symbol: body,
        })
        assembler.emitPlaceholder(2)
    }
    return nil
}

/* numeric value for a pass-2 symbol, which may carry a +n or -n suffix */
func (assembler *Assembler) resolveSymbolValue(symbol string) (int, bool) {
    base, sign, offset := splitOffset(symbol)

    text, ok := assembler.lookupSymbol(base)
    if !ok {
        return 0, false
    }

    if sign != 0 {
        resolvedOffset, ok := assembler.lookupSymbol(offset)
        if !ok {
            return 0, false
        }
        combined, err := assembler.addValue(text, string(sign) + resolvedOffset)
        if err != nil {
            return 0, false
        }
        text = combined
    }

    value, err := convertValue(text)
    if err != nil {
        return 0, false
    }
    return value, true
}

func (assembler *Assembler) lookupSymbol(name string) (string, bool) {
    if address, ok := assembler.Labels[name]; ok {
        return fmt.Sprintf("$%X", address), true
    }
    if value, ok := assembler.Constants[name]; ok {
        return value, true
    }
    if isNumeric(name) {
        return name, true
    }
    return "", false
}

/* pass 2: patch every placeholder now that all labels are known */
func (assembler *Assembler) resolveFixups() error {
    for _, fixup := range assembler.WordFixups {
        value, ok := assembler.resolveSymbolValue(fixup.Symbol)
        if !ok {
            return assembleError(ErrorLabelNotFound, "label not found: %v", fixup.Symbol)
        }
        assembler.Memory.StoreDirect(fixup.Address, byte(value))
        assembler.Memory.StoreDirect(fixup.Address + 1, byte(value >> 8))
    }

    for _, fixup := range assembler.ByteFixups {
        selector := fixup.Symbol[0]
        value, ok := assembler.resolveSymbolValue(fixup.Symbol[1:])
        if !ok {
            return assembleError(ErrorLabelNotFound, "label not found: %v", fixup.Symbol[1:])
        }
        selected, err := getHighLowByte(formatValue(value, "$"), selector)
        if err != nil {
            return err
        }
        byteValue, err := convertValue(selected)
        if err != nil {
            return err
        }
        assembler.Memory.StoreDirect(fixup.Address, byte(byteValue))
    }

    for _, fixup := range assembler.BranchFixups {
        target, ok := assembler.resolveSymbolValue(fixup.Symbol)
        if !ok {
            return assembleError(ErrorBranchLabelNotFound, "branch label not found: %v", fixup.Symbol)
        }
        displacement := target - (int(fixup.Address) + 1)
        if displacement < -128 || displacement > 127 {
            return assembleError(ErrorBranchRange, "branch to %v is out of range (%v)", fixup.Symbol, displacement)
        }
        assembler.Memory.StoreDirect(fixup.Address, byte(int8(displacement)))
    }

    assembler.WordFixups = nil
    assembler.ByteFixups = nil
    assembler.BranchFixups = nil
    return nil
}
