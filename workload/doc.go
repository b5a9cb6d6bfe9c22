/*
Package workload contains headless operation generators, one per variant.
They stand in for the interactive presentation adapter: each generator reads
replica snapshots through the engine's control surface, constructs a legal
operation for one randomly chosen replica and submits it. Generators never
mutate replica state directly.
*/
package workload
