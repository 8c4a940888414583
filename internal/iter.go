package internal

import (
	"iter"
	"maps"
	"strconv"
)

// IterSeq2Concat concatenates multiple dual-return iterators into a single iterator sequence.
func IterSeq2Concat[T1 any, T2 any](seqs ...iter.Seq2[T1, T2]) iter.Seq2[T1, T2] {
	return func(yield func(T1, T2) bool) {
		for _, seq := range seqs {
			for val1, val2 := range seq {
				if !yield(val1, val2) {
					return
				}
			}
		}
	}
}

// Defines formats a table of integer constants as assembler equates.
func Defines[T ~int | ~uint8 | ~uint16](table map[string]T) iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for name, value := range maps.All(table) {
			if !yield(name, strconv.Itoa(int(value))) {
				return
			}
		}
	}
}
