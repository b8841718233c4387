package service

import "context"

type testTxRepos struct {
	queries   QueryRepositoryInterface
	documents DocumentRepositoryInterface
	knowledge KnowledgeRepositoryInterface
}

func (t *testTxRepos) Queries() QueryRepositoryInterface {
	return t.queries
}

func (t *testTxRepos) Documents() DocumentRepositoryInterface {
	return t.documents
}

func (t *testTxRepos) Knowledge() KnowledgeRepositoryInterface {
	return t.knowledge
}

type testTxRunner struct {
	repos  TxRepositories
	called bool
	err    error
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	if t.err != nil {
		return t.err
	}
	return fn(t.repos)
}
