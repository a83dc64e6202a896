package assert

import "fmt"

func Assert(condition bool, msg string, other ...any) {
	if !condition {
		if len(other) > 0 {
			panic(fmt.Sprint(append([]any{msg + ": "}, other...)...))
		}
		panic(msg)
	}
}

func AssertNil(value any, msg string, other ...any) {
	Assert(value == nil, msg, other...)
}
