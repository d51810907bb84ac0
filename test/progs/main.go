package main

/* assemble and run every embedded demo program headlessly and report
 * pass/fail for each. a demo passes when it assembles cleanly and stops
 * on its own within a bounded number of steps.
 */

import (
    "fmt"
    "os"

    "github.com/fatih/color"

    "github.com/kazzmir/sim6502/data"
    sim "github.com/kazzmir/sim6502/lib"
)

func failure(message string) string {
    red := color.New(color.FgRed).SprintFunc()
    return fmt.Sprintf("%v %v", message, red("failed"))
}

func success(message string) string {
    green := color.New(color.FgGreen).SprintFunc()
    return fmt.Sprintf("%v %v", message, green("passed"))
}

type quietStatus struct {
    failures []string
}

func (status *quietStatus) Log(text string){
}

func (status *quietStatus) LogError(text string){
    status.failures = append(status.failures, text)
}

func runProgram(name string) error {
    source, err := data.OpenProgram(name)
    if err != nil {
        return err
    }

    machine := sim.NewMachine()
    status := &quietStatus{}
    machine.Status = status

    if !machine.AssembleSource(string(source)) {
        return fmt.Errorf("%v", status.failures[0])
    }

    machine.Reset()

    const maxSteps = 2000000
    for i := 0; i < maxSteps; i++ {
        running, err := machine.StepOne()
        if err != nil {
            return err
        }
        if !running {
            return nil
        }
        if machine.CPU.Waiting {
            return fmt.Errorf("program is stuck waiting for an interrupt")
        }
    }

    return fmt.Errorf("did not stop after %v steps", maxSteps)
}

func main(){
    broken := 0
    for _, name := range data.ListPrograms() {
        err := runProgram(name)
        if err != nil {
            fmt.Printf("%v: %v\n", failure(name), err)
            broken += 1
        } else {
            fmt.Println(success(name))
        }
    }

    if broken > 0 {
        os.Exit(1)
    }
}
