package cmd

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(dateCmd)
	RootCmd.AddCommand(helpCmd)
	RootCmd.AddCommand(capabilitiesCmd)
}

var dateCmd = &cobra.Command{
	Use:   "date",
	Short: "print the server's UTC time",
	Run: func(_ *cobra.Command, _ []string) {
		s, err := connect()
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		ts, err := s.Date()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(ts.Format("2006-01-02 15:04:05 MST"))
	},
}

var helpCmd = &cobra.Command{
	Use:   "help-text",
	Short: "print the server's HELP text",
	Run: func(_ *cobra.Command, _ []string) {
		s, err := connect()
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		text, err := s.Help()
		if err != nil {
			log.Fatal(err)
		}
		fmt.Print(text)
	},
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "list the server's capabilities",
	Run: func(_ *cobra.Command, _ []string) {
		s, err := connect()
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		caps, err := s.Capabilities("")
		if err != nil {
			log.Fatal(err)
		}
		for _, c := range caps {
			fmt.Println(c)
		}
	},
}
