// cmd/forcedaq/check.go
package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tamzrod/force-daq/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check <config>",
	Short: "Validate a configuration file and print the resolved channels",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TAG\tPROTOCOL\tDRIVER\tLINK\tDETAIL")
		for _, ch := range cfg.Acquisition.Channels {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s@%d %d%s%d\t%s\n",
				ch.Tag, ch.Protocol, ch.Link.Driver,
				ch.Link.Port, ch.Link.Baud, ch.Link.DataBits, ch.Link.Parity, ch.Link.StopBits,
				channelDetail(ch))
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		fmt.Fprintf(out, "\nsinks: %s\n", sinkSummary(cfg.Sinks))
		fmt.Fprintln(out, "config OK")
		return nil
	},
}

func channelDetail(ch config.ChannelConfig) string {
	switch ch.Protocol {
	case config.ProtocolASCII:
		a := ch.ASCII
		return fmt.Sprintf("delimiter=0x%02x min_length=%d batch=%d chunk=%d",
			*a.Delimiter, a.MinLength, a.BatchSize, a.ChunkSize)
	case config.ProtocolModbusRTU:
		m := ch.Modbus
		return fmt.Sprintf("slave=%d register=%d precision=%d retries=%d",
			m.SlaveID, *m.Register, *m.Precision, m.Retries)
	}
	return ""
}

func sinkSummary(s config.SinksConfig) string {
	var names []string
	if s.Pipe != nil {
		names = append(names, "pipe("+s.Pipe.Path+")")
	}
	if s.ModbusTCP != nil {
		names = append(names, "modbus_tcp("+s.ModbusTCP.Endpoint+")")
	}
	if s.WebSocket != nil {
		names = append(names, "websocket("+s.WebSocket.Listen+s.WebSocket.Path+")")
	}
	if s.SQLite != nil {
		names = append(names, "sqlite("+s.SQLite.Path+")")
	}
	if len(names) == 0 {
		return "none"
	}
	return fmt.Sprint(names)
}
