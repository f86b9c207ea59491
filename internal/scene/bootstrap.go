package scene

import (
	"fmt"

	"github.com/gyaneshwarpardhi/scenegraph/internal/config"
	"github.com/gyaneshwarpardhi/scenegraph/internal/node"
)

// Bootstrap installs the configured default templates and creates the
// configured singletons. The scene counts as unmodified afterwards.
func (s *Scene) Bootstrap(conf config.SceneConf) error {
	for _, d := range conf.Defaults {
		n, err := s.fromTemplate(d)
		if err != nil {
			return fmt.Errorf("default %s: %w", d.Tag, err)
		}
		s.reg.SetDefaultTemplate(n.ClassName(), n)
	}
	for _, sg := range conf.Singletons {
		n, err := s.fromTemplate(sg)
		if err != nil {
			return fmt.Errorf("singleton %s/%s: %w", sg.Tag, sg.Singleton, err)
		}
		n.Core().SetSingletonTag(sg.Singleton)
		if _, err := s.Add(n); err != nil {
			return fmt.Errorf("singleton %s/%s: %w", sg.Tag, sg.Singleton, err)
		}
	}
	s.markRead()
	s.logger.Info("scene bootstrapped",
		"defaults", len(conf.Defaults),
		"singletons", len(conf.Singletons),
		"live", s.Len())
	return nil
}

func (s *Scene) fromTemplate(t config.NodeTemplate) (node.Node, error) {
	n, err := s.reg.CreateByTag(t.Tag)
	if err != nil {
		return nil, err
	}
	if t.Name != "" {
		n.SetName(t.Name)
	}
	if len(t.Attrs) == 0 {
		return n, nil
	}
	p, ok := n.(node.Persistable)
	if !ok {
		return nil, fmt.Errorf("%s has no attributes", t.Tag)
	}
	if err := p.ReadAttributes(t.Attrs); err != nil {
		return nil, err
	}
	return n, nil
}
