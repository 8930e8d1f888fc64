// Command clashd runs AI-vs-AI matches and serves them to spectators.
package main

func main() {
	Execute()
}
