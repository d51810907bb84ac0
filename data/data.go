package data

import (
    "embed"
    "io/fs"
    "sort"
    "strings"
)

//go:embed asm/*
var asmFS embed.FS

func OpenProgram(name string) ([]byte, error) {
    return fs.ReadFile(asmFS, "asm/" + name + ".asm")
}

func ListPrograms() []string {
    entries, err := asmFS.ReadDir("asm")
    if err != nil {
        return nil
    }

    var names []string
    for _, entry := range entries {
        names = append(names, strings.TrimSuffix(entry.Name(), ".asm"))
    }
    sort.Strings(names)
    return names
}
