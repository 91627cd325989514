// Command console is the terminal front end of the ERP admin screens.
package main

func main() {
	Execute()
}
