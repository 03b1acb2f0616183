package a

var registry = map[string]string{}

var counters = map[string]int{}

var allowed = map[string]bool{"debug": true}

type store struct {
	items map[string]string
}

func register(k, v string) {
	registry[k] = v // want `package-level map registry is mutated`
}

func forget(k string) {
	delete(registry, k) // want `package-level map registry is mutated`
}

func bump(k string) {
	counters[k]++ // want `package-level map counters is mutated`
}

func isAllowed(k string) bool {
	return allowed[k]
}

func (s *store) put(k, v string) {
	s.items[k] = v
}

func local() map[string]int {
	m := map[string]int{}
	m["a"] = 1
	delete(m, "a")
	return m
}

func shadowed() {
	registry := map[string]string{}
	registry["k"] = "v"
}
