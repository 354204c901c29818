// Command romarr imports game files into a catalogued ROM library.
package main

func main() {
	Execute()
}
