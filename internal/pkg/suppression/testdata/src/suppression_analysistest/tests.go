package suppression_analysistest

func plainSuppressed() {
	// taint-check-suppress
	println("a") // want "suppressed"
}

func categorySuppressed() {
	// taint-check-suppress sql, shell
	println("b") // want "suppressed"
}

func notSuppressed() {
	println("c")
}
