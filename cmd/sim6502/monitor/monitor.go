package monitor

import (
    "log"
    "net/http"

    "github.com/gorilla/websocket"

    sim "github.com/kazzmir/sim6502/lib"
)

/* a small remote monitor protocol over a websocket. every request is one
 * json object with a "command" field, every reply is one json object.
 * reads of cpu state are meant for a stopped or stepped machine.
 */
type Request struct {
    Command string `json:"command"`
    Start uint16 `json:"start,omitempty"`
    Count int `json:"count,omitempty"`
}

type Registers struct {
    A byte `json:"a"`
    X byte `json:"x"`
    Y byte `json:"y"`
    SP byte `json:"sp"`
    PC uint16 `json:"pc"`
    Status byte `json:"status"`
}

type Response struct {
    Ok bool `json:"ok"`
    Error string `json:"error,omitempty"`
    Registers *Registers `json:"registers,omitempty"`
    Text string `json:"text,omitempty"`
    Executing bool `json:"executing,omitempty"`
}

type Monitor struct {
    Machine *sim.Machine
    upgrader websocket.Upgrader
}

func MakeMonitor(machine *sim.Machine) *Monitor {
    return &Monitor{
        Machine: machine,
    }
}

/* serve until the listener dies. meant to run in its own goroutine next
 * to a headless machine.
 */
func (monitor *Monitor) Serve(address string) error {
    handler := http.NewServeMux()
    handler.HandleFunc("/monitor", monitor.serveClient)
    log.Printf("Monitor listening on %v/monitor", address)
    return http.ListenAndServe(address, handler)
}

func (monitor *Monitor) serveClient(writer http.ResponseWriter, request *http.Request){
    connection, err := monitor.upgrader.Upgrade(writer, request, nil)
    if err != nil {
        log.Printf("Could not upgrade websocket connection: %v", err)
        return
    }
    defer connection.Close()

    log.Printf("Monitor client connected from %v", request.RemoteAddr)

    for {
        var incoming Request
        err := connection.ReadJSON(&incoming)
        if err != nil {
            log.Printf("Monitor client gone: %v", err)
            return
        }

        response := monitor.handle(incoming)
        err = connection.WriteJSON(&response)
        if err != nil {
            log.Printf("Could not reply to monitor client: %v", err)
            return
        }
    }
}

func (monitor *Monitor) handle(request Request) Response {
    machine := monitor.Machine
    cpu := machine.CPU

    switch request.Command {
        case "state":
            return Response{
                Ok: true,
                Executing: machine.Executing,
                Registers: &Registers{
                    A: cpu.A,
                    X: cpu.X,
                    Y: cpu.Y,
                    SP: cpu.SP,
                    PC: cpu.PC,
                    Status: cpu.Status,
                },
            }

        case "dump":
            count := request.Count
            if count <= 0 || count > 0x1000 {
                count = 256
            }
            return Response{
                Ok: true,
                Text: cpu.Memory.DumpRange(request.Start, count),
            }

        case "disassemble":
            count := request.Count
            if count <= 0 || count > 256 {
                count = 16
            }
            start := request.Start
            if start == 0 {
                start = cpu.PC
            }
            return Response{
                Ok: true,
                Text: sim.DisassembleToText(cpu.Memory, start, count, machine.Table),
            }

        case "step":
            if machine.Executing {
                return Response{Error: "machine is executing, stop it first"}
            }
            running, err := machine.StepOne()
            if err != nil {
                return Response{Error: err.Error()}
            }
            return Response{Ok: true, Executing: running}

        case "stop":
            machine.RequestStop()
            return Response{Ok: true}

        case "resume":
            machine.ResumeFromWait()
            return Response{Ok: true}
    }

    return Response{Error: "unknown command " + request.Command}
}
