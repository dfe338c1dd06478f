// Command devskit runs the bank scenario on the devskit simulation kernel,
// saves snapshots of it and branches new runs from them.
package main

func main() {
	Execute()
}
