package script

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Expressions are compiled with expr-lang restricted to boolean, comparison
// and arithmetic over variable lookups and literals: the program runs against
// a plain variable map with no functions or methods exposed, so scripts can
// never reach general code execution.

func compileBool(src string) (*vm.Program, error) {
	program, err := expr.Compile(src,
		expr.Env(map[string]interface{}{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", src, err)
	}
	return program, nil
}

func runBool(program *vm.Program, vars map[string]interface{}) (bool, error) {
	if vars == nil {
		vars = map[string]interface{}{}
	}
	output, err := expr.Run(program, vars)
	if err != nil {
		return false, fmt.Errorf("eval condition: %w", err)
	}
	result, ok := output.(bool)
	if !ok {
		return false, fmt.Errorf("condition did not return bool (got %T)", output)
	}
	return result, nil
}
