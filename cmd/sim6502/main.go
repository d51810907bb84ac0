package main

import (
    "context"
    "fmt"
    "log"
    "os"
    "os/signal"
    "strconv"
    "time"

    "github.com/kazzmir/sim6502/cmd/sim6502/common"
    "github.com/kazzmir/sim6502/cmd/sim6502/debug"
    "github.com/kazzmir/sim6502/cmd/sim6502/monitor"
    "github.com/kazzmir/sim6502/data"
    sim "github.com/kazzmir/sim6502/lib"
)

func usage(){
    fmt.Printf(`sim6502 [options] program.asm

  -demo name        run an embedded demo program (%v)
  -headless         run without a window
  -debug            interactive terminal debugger
  -monitor addr     serve the websocket monitor, e.g. -monitor :7502
  -dump             print a hexdump of 256 bytes from the start address and exit
  -disassemble      print up to 256 instructions from the start address and exit
  -screenshot file  write the framebuffer to a bmp file when the program ends
  -speed n          instructions per tick
  -interval ms      milliseconds between ticks
  -irq              route raw key presses through the irq vector
`, data.ListPrograms())
}

func main(){
    log.SetFlags(log.Lshortfile | log.Lmicroseconds | log.Ldate)

    config := common.LoadConfig()

    var sourcePath string
    var demoName string
    var headless bool
    var useDebugger bool
    var monitorAddress string
    var doDump bool
    var doDisassemble bool
    var screenshotPath string

    argIndex := 1
    for argIndex < len(os.Args) {
        arg := os.Args[argIndex]

        needValue := func(name string) string {
            argIndex += 1
            if argIndex >= len(os.Args) {
                log.Fatalf("Expected an argument for %v", name)
            }
            return os.Args[argIndex]
        }

        switch arg {
            case "-help", "--help", "-h":
                usage()
                return
            case "-demo", "--demo":
                demoName = needValue(arg)
            case "-headless", "--headless":
                headless = true
            case "-debug", "--debug":
                useDebugger = true
            case "-monitor", "--monitor":
                monitorAddress = needValue(arg)
            case "-dump", "--dump":
                doDump = true
            case "-disassemble", "--disassemble":
                doDisassemble = true
            case "-screenshot", "--screenshot":
                screenshotPath = needValue(arg)
            case "-speed", "--speed":
                speed, err := strconv.Atoi(needValue(arg))
                if err != nil || speed <= 0 {
                    log.Fatalf("Bad -speed value")
                }
                config.StepsPerTick = speed
            case "-interval", "--interval":
                interval, err := strconv.Atoi(needValue(arg))
                if err != nil || interval < 0 {
                    log.Fatalf("Bad -interval value")
                }
                config.TickIntervalMs = interval
            case "-irq", "--irq":
                config.KeyboardInterrupt = true
                config.MouseInterrupt = true
            default:
                sourcePath = arg
        }

        argIndex += 1
    }

    var source []byte
    var err error
    switch {
        case demoName != "":
            source, err = data.OpenProgram(demoName)
            if err != nil {
                log.Fatalf("No such demo %v. Available: %v", demoName, data.ListPrograms())
            }
        case sourcePath != "":
            source, err = os.ReadFile(sourcePath)
            if err != nil {
                log.Fatalf("Could not read %v: %v", sourcePath, err)
            }
        default:
            usage()
            os.Exit(1)
    }

    machine := sim.NewMachine()
    machine.Status = MakeConsoleStatus()
    machine.CPU.Text = &ConsoleOutput{}
    machine.CPU.Input = MakeConsoleInput()
    machine.StepsPerTick = config.StepsPerTick
    machine.TickInterval = time.Duration(config.TickIntervalMs) * time.Millisecond
    machine.KeyboardInterrupt = config.KeyboardInterrupt
    machine.MouseInterrupt = config.MouseInterrupt

    if !machine.AssembleSource(string(source)) {
        os.Exit(1)
    }

    if doDump {
        machine.Reset()
        fmt.Print(machine.CPU.Memory.DumpRange(machine.CPU.PC, 256))
        return
    }

    if doDisassemble {
        machine.Reset()
        fmt.Print(sim.DisassembleToText(machine.CPU.Memory, machine.CPU.PC, 256, machine.Table))
        return
    }

    if useDebugger {
        err := debug.Run(machine)
        if err != nil {
            log.Fatalf("Debugger error: %v", err)
        }
        return
    }

    if monitorAddress != "" {
        remote := monitor.MakeMonitor(machine)
        go func(){
            err := remote.Serve(monitorAddress)
            if err != nil {
                log.Printf("Monitor stopped: %v", err)
            }
        }()
        headless = true
    }

    if headless {
        quit, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
        defer cancel()

        machine.Reset()
        err := machine.Run(quit)
        if err != nil {
            os.Exit(1)
        }

        if screenshotPath != "" {
            err := writeScreenshot(machine.CPU.Memory, screenshotPath)
            if err != nil {
                log.Fatalf("Could not save screenshot: %v", err)
            }
            machine.Status.Log(fmt.Sprintf("Saved %v", screenshotPath))
        }
        return
    }

    err = RunGui(machine, config, screenshotPath)
    if err != nil {
        log.Fatalf("Error: %v", err)
    }
}
