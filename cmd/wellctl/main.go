// wellctl is the admin CLI for the mindful API: schema migrations, user
// creation and session management.
// Usage: go run ./cmd/wellctl <command>
package main

func main() {
	Execute()
}
