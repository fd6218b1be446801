package exprlang

import "fmt"

// applyFunction dispatches a built-in over already-evaluated arguments.
//
// Aggregate semantics:
//   - COUNT over a single list argument returns the list length; over any
//     other argument shape it counts the non-null arguments.
//   - SUM adds numeric arguments and numeric list elements; anything else
//     contributes zero.
//   - MIN/MAX fold the numeric arguments (lists flattened) and ignore
//     unresolvable ones; with no numeric input they fail.
func applyFunction(name string, args []Value) (Value, error) {
	switch name {
	case "COUNT":
		if len(args) == 1 && args[0].Kind == KindList {
			return Number(float64(len(args[0].List))), nil
		}
		present := 0
		for _, a := range args {
			if a.Kind != KindNull {
				present++
			}
		}
		return Number(float64(present)), nil

	case "SUM":
		total := 0.0
		for _, a := range args {
			switch a.Kind {
			case KindNumber:
				total += a.Num
			case KindList:
				for _, elem := range a.List {
					if elem.Kind == KindNumber {
						total += elem.Num
					}
				}
			}
		}
		return Number(total), nil

	case "MIN", "MAX":
		nums := collectNumbers(args)
		if len(nums) == 0 {
			return Value{}, fmt.Errorf("exprlang: %s has no numeric arguments", name)
		}
		best := nums[0]
		for _, n := range nums[1:] {
			if (name == "MIN" && n < best) || (name == "MAX" && n > best) {
				best = n
			}
		}
		return Number(best), nil
	}
	return Value{}, fmt.Errorf("exprlang: unknown function %q", name)
}

func collectNumbers(args []Value) []float64 {
	var nums []float64
	for _, a := range args {
		switch a.Kind {
		case KindNumber:
			nums = append(nums, a.Num)
		case KindList:
			for _, elem := range a.List {
				if elem.Kind == KindNumber {
					nums = append(nums, elem.Num)
				}
			}
		}
	}
	return nums
}
