package node

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// confirmDelete asks on in whether the stored databases should be removed.
func confirmDelete(in io.Reader) (bool, error) {
	reader := bufio.NewReader(in)

	log.Warn("This will delete the state and vote databases stored in your data directory. " +
		"Your database backups will not be removed - do you want to proceed? (Y/N)")

	for {
		fmt.Print(">> ")

		line, _, err := reader.ReadLine()
		if err != nil {
			return false, err
		}
		lineInput := strings.ToUpper(strings.TrimSpace(string(line)))
		switch lineInput {
		case "Y":
			log.Warn("Deleting databases from data directory")
			return true, nil
		case "N":
			log.Info("Not deleting databases, the node will start from the current data directory")
			return false, nil
		default:
			log.Errorf("Invalid option of %s chosen, enter Y/N", line)
		}
	}
}
