package cmd

import (
	"fmt"
	"os"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/damianoneill/nntp/client"
	"github.com/damianoneill/nntp/common"
)

var (
	gzipFeature bool
	rawBody     bool
)

func init() {
	RootCmd.AddCommand(listCmd)
	RootCmd.AddCommand(xoverCmd)
	RootCmd.AddCommand(articleCmd)
	xoverCmd.Flags().BoolVar(&gzipFeature, "gzip", false, "negotiate XFEATURE COMPRESS GZIP first")
	articleCmd.Flags().BoolVar(&rawBody, "raw", false, "suppress yEnc body decoding")
}

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "list active newsgroups",
	Args:  cobra.MaximumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		s, err := connect()
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		pattern := ""
		if len(args) > 0 {
			pattern = args[0]
		}
		groups, err := s.ListActive(pattern)
		if err != nil {
			log.Fatal(err)
		}
		for _, g := range groups {
			fmt.Printf("%s %d %d %s\n", g.Name, g.Low, g.High, g.Status)
		}
	},
}

var xoverCmd = &cobra.Command{
	Use:   "xover <group> <first> <last>",
	Short: "print overview entries for an article range",
	Args:  cobra.ExactArgs(3),
	Run: func(_ *cobra.Command, args []string) {
		s, err := connect()
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		if _, err := s.SelectGroup(args[0]); err != nil {
			log.Fatal(err)
		}
		if gzipFeature {
			if err := s.XFeatureCompressGzip(false); err != nil {
				log.Fatal(err)
			}
		}

		first, err1 := parseArticleNo(args[1])
		last, err2 := parseArticleNo(args[2])
		if err1 != nil || err2 != nil {
			log.Fatal("first and last must be article numbers")
		}
		entries, err := s.XOver(common.Span{First: first, Last: last})
		if err != nil {
			log.Fatal(err)
		}
		for _, e := range entries {
			fmt.Printf("%d\t%s\t%s\n", e.Article, e.Headers.Value("Subject"), e.Headers.Value("Message-ID"))
		}
	},
}

var articleCmd = &cobra.Command{
	Use:   "article <group> <number|message-id>",
	Short: "fetch an article and write its body to stdout",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		s, err := connect()
		if err != nil {
			log.Fatal(err)
		}
		defer s.Close()

		if _, err := s.SelectGroup(args[0]); err != nil {
			log.Fatal(err)
		}

		var id common.MsgIDRange
		if n, perr := parseArticleNo(args[1]); perr == nil {
			id = common.Article(n)
		} else {
			id = common.MsgID(args[1])
		}

		mode := client.YencAuto
		if rawBody {
			mode = client.YencOff
		}
		_, hdrs, body, err := s.Article(id, mode)
		if err != nil {
			log.Fatal(err)
		}
		hdrs.Each(func(name, value string) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", name, value)
		})
		_, _ = os.Stdout.Write(body)
	},
}

func parseArticleNo(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
