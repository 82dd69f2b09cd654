// Package opt holds what every solver shares: the solution encoding, the pure evaluator and
// its penalised fitness, neighbourhood moves, construction and repair heuristics, stopping
// criteria, seeded randomness, and the Run loop that drives a Solver to completion.
package opt
