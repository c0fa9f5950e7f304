package hostsession

import "github.com/chronicals/sdk/pkg/rpc"

// wireHandlers registers every inbound method against the Transaction and
// Page managers built in New. Handlers are bound once; RPCClient.SetSocket
// rebinds the transport underneath without touching this registration.
func (s *Session) wireHandlers() {
	s.rpc.RegisterHandler(rpc.MethodStartTransaction, s.txnMgr.HandleStartTransaction)
	s.rpc.RegisterHandler(rpc.MethodIOResponse, s.txnMgr.HandleIOResponse)
	s.rpc.RegisterHandler(rpc.MethodCloseTransaction, s.txnMgr.HandleCloseTransaction)
	s.rpc.RegisterHandler(rpc.MethodOpenPage, s.pageMgr.HandleOpenPage)
	s.rpc.RegisterHandler(rpc.MethodClosePage, s.pageMgr.HandleClosePage)
}
