package dag

// OnUpdateVariableNode invokes fn for node and every node reachable from it,
// each once, following order. Nothing is called when node is not in order.
func OnUpdateVariableNode(node string, g *Graph, order []string, fn func(string)) {
	visited := make(map[string]bool)
	for _, id := range order {
		if id != node && !visited[id] {
			continue
		}
		visited[id] = true
		fn(id)
		for _, child := range g.Children(id) {
			visited[child] = true
		}
	}
}

// CheckAPIInvocation decides whether the variable called name may fetch its
// values now. Variables without parents always may. A variable with parents
// must be at the head of the pending queue.
func CheckAPIInvocation(queue []string, name string, parents *Graph) bool {
	if name == "" || parents.Empty() {
		return false
	}
	if len(parents.Children(name)) == 0 {
		return true
	}
	return len(queue) > 0 && queue[0] == name
}
