package pysource

import (
	"context"
	"embed"
	"fmt"
	"sync"
)

//go:embed stubs/*.pyi
var stubFS embed.FS

// stubModules are parsed in order; later modules see earlier ones.
var stubModules = []string{"builtins", "typing"}

var loadStubs = sync.OnceValues(func() (map[string]*File, error) {
	modules := make(map[string]*File)

	for _, name := range stubModules {
		path := "stubs/" + name + ".pyi"

		src, err := stubFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading stub %s: %w", name, err)
		}

		f, err := parse(context.Background(), name+".pyi", src, modules)
		if err != nil {
			return nil, fmt.Errorf("parsing stub %s: %w", name, err)
		}

		modules[name] = f
	}

	modules["typing_extensions"] = modules["typing"]

	for _, name := range stubModules {
		f := modules[name]
		for _, c := range f.classList {
			f.finalize(c)
		}
	}

	return modules, nil
})
