// Public domain.

package main

import (
	_ "github.com/joho/godotenv/autoload"

	"github.com/soniakeys/psrtime/internal/psrprog"
)

func main() {
	psrprog.Main()
}
