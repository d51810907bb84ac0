package main

import (
    "bufio"
    "fmt"
    "os"

    "github.com/fatih/color"
    "golang.org/x/term"
)

/* status sink writing to the terminal, errors in red the way the
 * assembler's numbered messages expect to stand out
 */
type ConsoleStatus struct {
    redError func(a ...interface{}) string
}

func MakeConsoleStatus() *ConsoleStatus {
    return &ConsoleStatus{
        redError: color.New(color.FgRed).SprintFunc(),
    }
}

func (status *ConsoleStatus) Log(text string){
    fmt.Println(text)
}

func (status *ConsoleStatus) LogError(text string){
    fmt.Println(status.redError(text))
}

/* text output collaborator for OUT/OUY. code 13 is a newline. */
type ConsoleOutput struct {
}

func (console *ConsoleOutput) WriteChar(code uint16){
    if code == 13 {
        fmt.Println()
        return
    }
    fmt.Printf("%c", rune(code))
}

/* blocking line reader for the IN opcode */
type ConsoleInput struct {
    reader *bufio.Reader
    prompt func(a ...interface{}) string
}

func MakeConsoleInput() *ConsoleInput {
    return &ConsoleInput{
        reader: bufio.NewReader(os.Stdin),
        prompt: color.New(color.FgCyan).SprintFunc(),
    }
}

func (console *ConsoleInput) ReadLine() []byte {
    if term.IsTerminal(int(os.Stdin.Fd())) {
        fmt.Print(console.prompt("input? "))
    }

    line, err := console.reader.ReadString('\n')
    if err != nil && line == "" {
        return nil
    }

    /* strip the line ending, the cpu side appends its own NUL sentinel */
    for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
        line = line[:len(line)-1]
    }
    return []byte(line)
}
