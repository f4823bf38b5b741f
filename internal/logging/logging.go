// Package logging constrói o logger logrus do serviço. Cada pacote obtém o
// seu entry com For(log, "componente") e herda o campo em todas as linhas.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New cria um logger com o formato ("json" ou "text") e nível pedidos.
// Níveis inválidos caem em info.
func New(level, format string) *logrus.Logger {
	log := logrus.New()
	if format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
			FullTimestamp:   true,
		})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)
	return log
}

// For devolve um entry com o campo component preenchido.
func For(log *logrus.Logger, component string) *logrus.Entry {
	return log.WithField("component", component)
}
