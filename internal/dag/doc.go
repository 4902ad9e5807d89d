// Package dag builds and executes the pipeline dependency graph. Stages and
// resources become nodes; edges come from explicit depends_on lists and from
// implicit references inside step arguments and uses blocks. Execution is a
// worker pool draining a ready channel, with each node's condition evaluated
// against the terminal outcomes of its dependencies at the moment it becomes
// ready. A failed stage never cancels its siblings; downstream stages decide
// for themselves whether to run or skip.
package dag
